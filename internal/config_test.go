package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMediaConfig_RequiresRoots(t *testing.T) {
	cfg := MediaConfig{OutputPath: "./out"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing input path should fail")
	}
	cfg = MediaConfig{InputPath: "./in", OutputPath: "./out"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("both roots set should pass: %v", err)
	}
}

func TestMediaConfig_RejectsEmptyCustomRoot(t *testing.T) {
	cfg := MediaConfig{
		InputPath:   "./in",
		OutputPath:  "./out",
		CustomRoots: map[string]string{"models": ""},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty custom root path should fail")
	}
}

func TestWorkflowConfig_TTL(t *testing.T) {
	cfg := WorkflowConfig{CacheTTLSeconds: 90}
	if got := cfg.CacheTTL(); got != 90*time.Second {
		t.Errorf("ttl = %v", got)
	}
	cfg.CacheTTLSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative ttl should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
