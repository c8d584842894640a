package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
		{"returns empty string env over default", "TEST_KEY_EMPTY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "TEST_INT_UNSET", 100, "", 100},
		{"parses valid int", "TEST_INT_VALID", 100, "42", 42},
		{"returns default on invalid int", "TEST_INT_INVALID", 100, "not-a-number", 100},
		{"parses negative int", "TEST_INT_NEG", 100, "-5", -5},
		{"parses zero", "TEST_INT_ZERO", 100, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{"returns default when not set", "TEST_BOOL_UNSET", true, "", true},
		{"parses true", "TEST_BOOL_TRUE", false, "true", true},
		{"parses false", "TEST_BOOL_FALSE", true, "false", false},
		{"parses 1 as true", "TEST_BOOL_ONE", false, "1", true},
		{"parses 0 as false", "TEST_BOOL_ZERO", true, "0", false},
		{"returns default on invalid bool", "TEST_BOOL_INVALID", true, "yes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.SQLitePath != "./skillforge.db" {
		t.Errorf("SQLitePath = %q, want ./skillforge.db", cfg.SQLitePath)
	}
	if cfg.MissionsPath != "./missions" {
		t.Errorf("MissionsPath = %q, want ./missions", cfg.MissionsPath)
	}
	if !cfg.AnalysisEnabled {
		t.Error("AnalysisEnabled should default to true")
	}
	if cfg.ConsumerWorkers != 4 {
		t.Errorf("ConsumerWorkers = %d, want 4", cfg.ConsumerWorkers)
	}
	if cfg.ConsumerTimeout != 30 {
		t.Errorf("ConsumerTimeout = %d, want 30", cfg.ConsumerTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envVars := map[string]string{
		"DB_DRIVER":        "postgres",
		"DATABASE_URL":     "postgres://u:p@db:5432/forge",
		"RABBITMQ_URL":     "amqp://u:p@broker:5672/",
		"ANALYSIS_URL":     "http://analysis:9000",
		"ANALYSIS_ENABLED": "false",
		"MISSIONS_PATH":    "/srv/missions",
		"CONSUMER_WORKERS": "8",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DBDriver != DriverPostgres {
		t.Errorf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/forge" {
		t.Errorf("DatabaseURL = %q, want custom DSN", cfg.DatabaseURL)
	}
	if cfg.AnalysisURL != "http://analysis:9000" {
		t.Errorf("AnalysisURL = %q, want http://analysis:9000", cfg.AnalysisURL)
	}
	if cfg.AnalysisEnabled {
		t.Error("AnalysisEnabled should be false")
	}
	if cfg.MissionsPath != "/srv/missions" {
		t.Errorf("MissionsPath = %q, want /srv/missions", cfg.MissionsPath)
	}
	if cfg.ConsumerWorkers != 8 {
		t.Errorf("ConsumerWorkers = %d, want 8", cfg.ConsumerWorkers)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	os.Setenv("DB_DRIVER", "oracle")
	defer os.Unsetenv("DB_DRIVER")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject unsupported DB_DRIVER")
	}
}
