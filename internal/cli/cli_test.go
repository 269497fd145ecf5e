package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	if err := setDefaults(model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults: %v", err)
	}
	bindEnv()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	def := model.DefaultConfig()
	if cfg.LLM.Model != def.LLM.Model {
		t.Errorf("Expected model %q, got %q", def.LLM.Model, cfg.LLM.Model)
	}
	if cfg.Research.ReportTTL != 24*time.Hour {
		t.Errorf("Expected report TTL 24h, got %v", cfg.Research.ReportTTL)
	}
	if len(cfg.Research.Sources) != len(def.Research.Sources) {
		t.Errorf("Expected %d sources, got %v", len(def.Research.Sources), cfg.Research.Sources)
	}
	if len(cfg.LinkCheck.OfficialDomains) == 0 {
		t.Error("Expected official domains from defaults")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DOSSIER_LLM_MODEL", "gpt-test")
	t.Setenv("DOSSIER_RESEARCH_MAX_SOURCES", "3")
	t.Setenv("DOSSIER_HTTP_TIMEOUT", "5s")
	t.Setenv("DOSSIER_STORE_ENABLED", "true")
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.LLM.Model != "gpt-test" {
		t.Errorf("Expected env model, got %q", cfg.LLM.Model)
	}
	if cfg.Research.MaxSources != 3 {
		t.Errorf("Expected 3 max sources, got %d", cfg.Research.MaxSources)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.HTTP.Timeout)
	}
	if !cfg.Store.Enabled {
		t.Error("Expected store enabled from env")
	}
}

func TestLoadConfig_ProviderKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("DOSSIER_LLM_API_KEY", "")
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.LLM.APIKey != "sk-openai" {
		t.Errorf("Expected OPENAI_API_KEY to be used, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfig_ExplicitKeyWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("DOSSIER_LLM_API_KEY", "sk-explicit")
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.LLM.APIKey != "sk-explicit" {
		t.Errorf("Expected DOSSIER_LLM_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
}

func TestApplyProviderEnv_Ollama(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyProviderEnv(cfg)

	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("Expected OLLAMA_BASE_URL, got %q", cfg.LLM.BaseURL)
	}
	if err := validateProvider(cfg); err != nil {
		t.Errorf("Expected ollama to need no key, got %v", err)
	}
}

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantErr  bool
	}{
		{"openai", "", true},
		{"openai", "sk", false},
		{"anthropic", "", true},
		{"claude", "sk-ant", false},
		{"ollama", "", false},
	}

	for _, tt := range tests {
		cfg := model.DefaultConfig()
		cfg.LLM.Provider = tt.provider
		cfg.LLM.APIKey = tt.key

		err := validateProvider(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateProvider(%s, key=%q) error = %v, wantErr %v", tt.provider, tt.key, err, tt.wantErr)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dossier", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Dossier Configuration File") {
		t.Error("Expected header comment")
	}
	if strings.Contains(string(data), "api_key") {
		t.Error("API key must never be written to the config file")
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Expected valid YAML, got %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("Expected default provider, got %q", cfg.LLM.Provider)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Ltd", "acme-ltd"},
		{"Acme Ltd | United Kingdom", "acme-ltd-united-kingdom"},
		{"../../etc/passwd", "etc-passwd"},
		{"Müller GmbH & Co. KG", "müller-gmbh-co-kg"},
		{"***", "company"},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	used := make(map[string]int)

	got := []string{
		uniqueSlug(used, "acme"),
		uniqueSlug(used, "acme"),
		uniqueSlug(used, "globex"),
		uniqueSlug(used, "acme"),
	}
	expected := []string{"acme", "acme-2", "globex", "acme-3"}

	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("slug %d = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestHistoryTable(t *testing.T) {
	out := historyTable([]store.Lookup{
		{
			ID:        "abc",
			Company:   "Acme Ltd",
			Country:   "United Kingdom",
			Score:     72,
			Degraded:  true,
			Notices:   []model.Notice{{Message: "x"}},
			CreatedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
			Duration:  3 * time.Second,
		},
	})

	for _, want := range []string{"abc", "Acme Ltd", "degraded (1)", "72/100", "3s"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected history table to contain %q:\n%s", want, out)
		}
	}
}
