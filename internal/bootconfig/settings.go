package bootconfig

import (
	"path/filepath"
	"time"
)

// LogStore selects where the ambient logger writes.
type LogStore string

const (
	LogStoreFile    LogStore = "FILE"
	LogStoreConsole LogStore = "CONSOLE"
)

// Settings holds the process-level configuration needed before a
// ConfigTree can be opened. Struct tags name the koanf path each field
// loads from; see Load for the layering order.
type Settings struct {
	Root                 string   `koanf:"root"`
	InitConfig           string   `koanf:"init_config"`
	AWSRegion            string   `koanf:"aws_region"`
	Provision            bool     `koanf:"provision"`
	SetupSystemService   bool     `koanf:"setup_system_service"`
	Start                bool     `koanf:"start"`
	ComponentDefaultUser string   `koanf:"component_default_user"`
	LogStore             LogStore `koanf:"log_store"`

	HTTPProxy  string `koanf:"http_proxy"`
	HTTPSProxy string `koanf:"https_proxy"`
	NoProxy    string `koanf:"no_proxy"`
	SVCUID     string `koanf:"svcuid"`

	// DeploymentPollInterval is an expansion-only setting outside the CLI
	// surface. Validate requires it to be positive; cmd/nucleus does not
	// read it.
	DeploymentPollInterval time.Duration `koanf:"deployment_poll_interval"`
}

// defaultSettings returns the built-in baseline, the lowest-precedence
// layer Load starts from.
func defaultSettings() *Settings {
	return &Settings{
		Root:                   "/var/lib/nucleus",
		AWSRegion:              "us-east-1",
		Provision:              false,
		SetupSystemService:     false,
		Start:                  true,
		ComponentDefaultUser:   "nucleus:nucleus",
		LogStore:               LogStoreFile,
		DeploymentPollInterval: 10 * time.Second,
	}
}

// ConfigDir is <root>/config, home to the live ConfigTree transaction log
// and the optional declarative seed.
func (s *Settings) ConfigDir() string { return filepath.Join(s.Root, "config") }

// ConfigTlogPath is the live ConfigTree transaction log.
func (s *Settings) ConfigTlogPath() string { return filepath.Join(s.ConfigDir(), "config.tlog") }

// ConfigYamlPath is the optional declarative ConfigTree seed.
func (s *Settings) ConfigYamlPath() string { return filepath.Join(s.ConfigDir(), "config.yaml") }

// WorkDir is a component's private working directory.
func (s *Settings) WorkDir(service string) string {
	return filepath.Join(s.Root, "work", service)
}

// RecipesDir holds every known component's recipe files.
func (s *Settings) RecipesDir() string { return filepath.Join(s.Root, "packages", "recipes") }

// ArtifactsDir holds one component version's downloaded artifacts.
func (s *Settings) ArtifactsDir(name, version string) string {
	return filepath.Join(s.Root, "packages", "artifacts", name, version)
}

// DeploymentsDir is one deployment's staging area.
func (s *Settings) DeploymentsDir(id string) string {
	return filepath.Join(s.Root, "deployments", id)
}

// AltsDir is the root of the symlink-flip launch directory protocol.
func (s *Settings) AltsDir() string { return filepath.Join(s.Root, "alts") }

func (s *Settings) AltsCurrent() string { return filepath.Join(s.AltsDir(), "current") }
func (s *Settings) AltsNew() string     { return filepath.Join(s.AltsDir(), "new") }
func (s *Settings) AltsOld() string     { return filepath.Join(s.AltsDir(), "old") }
func (s *Settings) AltsBroken() string  { return filepath.Join(s.AltsDir(), "broken") }
