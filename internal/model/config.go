package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete dossier configuration
type Config struct {
	LLM          LLMConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Extraction   ExtractionConfig  `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Research     ResearchConfig    `json:"research" yaml:"research" mapstructure:"research"`
	HTTP         HTTPConfig        `json:"http" yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `json:"rate_limiting" yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Concurrency  ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	LinkCheck    LinkCheckConfig   `json:"link_check" yaml:"link_check" mapstructure:"link_check"`
	Output       OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
	Server       ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
}

// LLMConfig selects and configures the language model provider
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `json:"model" yaml:"model" mapstructure:"model"`
	APIKey      string  `json:"-" yaml:"-" mapstructure:"api_key"` // never written to disk
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// ExtractionConfig tunes the structured extraction call
type ExtractionConfig struct {
	Model     string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"` // overrides llm.model
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ResearchConfig tunes report generation
type ResearchConfig struct {
	// Sources are URL templates; {company}, {company_path} and {country} are expanded
	Sources        []string      `json:"sources" yaml:"sources" mapstructure:"sources"`
	MaxSources     int           `json:"max_sources" yaml:"max_sources" mapstructure:"max_sources"`
	MaxSourceChars int           `json:"max_source_chars" yaml:"max_source_chars" mapstructure:"max_source_chars"`
	MaxTokens      int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictSources  bool          `json:"strict_sources" yaml:"strict_sources" mapstructure:"strict_sources"`
	ReportTTL      time.Duration `json:"report_ttl" yaml:"report_ttl" mapstructure:"report_ttl"`
}

// HTTPConfig holds settings for fetching research sources
type HTTPConfig struct {
	Timeout       time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `json:"respect_robots" yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RateLimitConfig controls per-host request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls report and page caching
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `json:"dir" yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig controls the lookup history database
type StoreConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers      int `json:"workers" yaml:"workers" mapstructure:"workers"`                   // batch lookups
	FetchWorkers int `json:"fetch_workers" yaml:"fetch_workers" mapstructure:"fetch_workers"` // source fetches per lookup
}

// LinkCheckConfig controls optional reference link checking
type LinkCheckConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Workers int           `json:"workers" yaml:"workers" mapstructure:"workers"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Domains whose pages count as official or reputable sources; subdomains match
	OfficialDomains  []string          `json:"official_domains" yaml:"official_domains" mapstructure:"official_domains"`
	ReputableDomains []string          `json:"reputable_domains" yaml:"reputable_domains" mapstructure:"reputable_domains"`
	DomainMap        map[string]string `json:"domain_map,omitempty" yaml:"domain_map,omitempty" mapstructure:"domain_map"` // host -> official|reputable|other
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `json:"format" yaml:"format" mapstructure:"format"` // table, markdown, json
	Verbose bool   `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// ServerConfig controls the web shell
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     120,
			MaxTokens:   4000,
			Temperature: 0.2,
		},
		Extraction: ExtractionConfig{
			MaxTokens: 1500,
		},
		Research: ResearchConfig{
			Sources: []string{
				"https://en.wikipedia.org/wiki/{company_path}",
				"https://opencorporates.com/companies?q={company}",
			},
			MaxSources:     6,
			MaxSourceChars: 12000,
			MaxTokens:      4000,
			StrictSources:  false,
			ReportTTL:      24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Dossier/0.1 (+https://github.com/ppiankov/dossier)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultDir("cache"),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    defaultDir("history.db"),
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			FetchWorkers: 4,
		},
		LinkCheck: LinkCheckConfig{
			Enabled: false,
			Workers: 10,
			Timeout: 10 * time.Second,

			OfficialDomains: []string{
				"gov", "gov.uk", "europa.eu", "sec.gov",
				"companieshouse.gov.uk", "find-and-update.company-information.service.gov.uk",
				"handelsregister.de", "unternehmensregister.de", "kvk.nl", "infogreffe.fr",
				"bolagsverket.se", "brreg.no", "cvr.dk", "asic.gov.au", "gleif.org",
			},
			ReputableDomains: []string{
				"wikipedia.org", "opencorporates.com", "reuters.com", "bloomberg.com",
				"ft.com", "wsj.com", "forbes.com", "dnb.com", "crunchbase.com",
			},
		},
		Output: OutputConfig{
			Format: "table",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// defaultDir returns a path under ~/.dossier, or under the working directory
// when the home directory cannot be determined
func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dossier", name)
	}
	return filepath.Join(home, ".dossier", name)
}
