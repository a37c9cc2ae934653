package internal

import (
	"strings"
	"testing"
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

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
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

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStoreConfig_EmptyBackendDefaultsMemory(t *testing.T) {
	cfg := StoreConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to memory: %v", err)
	}
	if cfg.Backend != StoreBackendMemory {
		t.Errorf("backend = %q, want %q", cfg.Backend, StoreBackendMemory)
	}
}

func TestStoreConfig_GitRequiresDir(t *testing.T) {
	cfg := StoreConfig{Backend: StoreBackendGit}
	if err := cfg.Validate(); err == nil {
		t.Fatal("git backend without dir should fail")
	}
	cfg.Git.Dir = "/srv/fixes-repo"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("git backend with dir should pass: %v", err)
	}
}

func TestStoreConfig_GitHubRequiresCoordinates(t *testing.T) {
	cfg := StoreConfig{Backend: StoreBackendGitHub}
	if err := cfg.Validate(); err == nil {
		t.Fatal("github backend without coordinates should fail")
	}
	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "kb-data"
	cfg.GitHub.Path = "data/published-fixes.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("github backend with coordinates should pass: %v", err)
	}
}

func TestStoreConfig_UnknownBackend(t *testing.T) {
	cfg := StoreConfig{Backend: "carrier-pigeon"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestFullConfig_StoreValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Publish.Store.Backend = StoreBackendGit
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch store error")
	}
}
