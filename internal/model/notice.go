package model

// Stage names a step of a company lookup
type Stage string

const (
	StageIdle        Stage = "idle"
	StageQuerying    Stage = "querying"
	StageSplitting   Stage = "splitting"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageFormatting  Stage = "formatting"
	StageDone        Stage = "done"
)

// Notice is a user-visible message about a stage that degraded
type Notice struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}
