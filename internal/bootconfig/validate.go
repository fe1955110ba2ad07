package bootconfig

import "fmt"

// Validate checks that Settings describes a launchable process.
func (s *Settings) Validate() error {
	if s.Root == "" {
		return fmt.Errorf("bootconfig: root directory is required")
	}
	switch s.LogStore {
	case LogStoreFile, LogStoreConsole:
	default:
		return fmt.Errorf("bootconfig: log_store must be FILE or CONSOLE, got %q", s.LogStore)
	}
	if s.DeploymentPollInterval <= 0 {
		return fmt.Errorf("bootconfig: deployment_poll_interval must be positive")
	}
	return nil
}
