package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes for the portal API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Publish store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendGit    = "git"
	StoreBackendGitHub = "github"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	Index    IndexConfig       `yaml:"index"`
	Snapshot SnapshotConfig    `yaml:"snapshot"`
	Auth     AuthConfig        `yaml:"auth"`
	Publish  PublishConfig     `yaml:"publish"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Snapshot.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Publish.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the profile data directory, home of the draft and local
// overlay storage.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// IndexConfig holds SQLite search index configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SnapshotConfig locates the local mirror of the published-fixes document.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds portal API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// PublishConfig holds remote publish endpoint configuration.
type PublishConfig struct {
	// Path is where the publish endpoint is mounted.
	Path string `yaml:"path"`
	// RequireIdentity rejects publish requests without an identity header.
	RequireIdentity bool `yaml:"require_identity"`
	// IdentityHeader names the trusted proxy header carrying the caller
	// identity. Empty uses the default.
	IdentityHeader string `yaml:"identity_header"`
	// AllowedUsers restricts publishing to these identities (empty: any).
	AllowedUsers []string `yaml:"allowed_users"`
	// AllowedOrigins restricts browser callers (empty: reflect any origin).
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Store          StoreConfig `yaml:"store"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return err
	}
	return c.Store.Validate()
}

// StoreConfig selects and configures the shared document store backend.
type StoreConfig struct {
	Backend string            `yaml:"backend"`
	Git     GitStoreConfig    `yaml:"git"`
	GitHub  GitHubStoreConfig `yaml:"github"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = StoreBackendMemory
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(StoreBackendMemory, StoreBackendGit, StoreBackendGitHub)),
	); err != nil {
		return err
	}
	switch c.Backend {
	case StoreBackendGit:
		return c.Git.Validate()
	case StoreBackendGitHub:
		return c.GitHub.Validate()
	}
	return nil
}

// GitStoreConfig configures the local-git document store.
type GitStoreConfig struct {
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	Branch string `yaml:"branch"`
}

// Validate validates the git store configuration.
func (c *GitStoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// GitHubStoreConfig configures the GitHub contents-API document store.
type GitHubStoreConfig struct {
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Path    string `yaml:"path"`
	Branch  string `yaml:"branch"`
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// Validate validates the GitHub store configuration.
func (c *GitHubStoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Index: IndexConfig{
			Path: "./fixport.db",
		},
		Snapshot: SnapshotConfig{
			Path: "./data/published-fixes.json",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Publish: PublishConfig{
			Path: "/publish",
			Store: StoreConfig{
				Backend: StoreBackendMemory,
			},
		},
	}
}
