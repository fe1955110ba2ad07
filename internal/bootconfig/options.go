package bootconfig

// Option overrides one Settings field. Options apply last, after
// defaults, the settings file, and environment variables, so a CLI flag
// always wins.
type Option func(*Settings)

func WithRoot(root string) Option {
	return func(s *Settings) {
		if root != "" {
			s.Root = root
		}
	}
}

func WithInitConfig(path string) Option {
	return func(s *Settings) {
		if path != "" {
			s.InitConfig = path
		}
	}
}

func WithAWSRegion(region string) Option {
	return func(s *Settings) {
		if region != "" {
			s.AWSRegion = region
		}
	}
}

func WithProvision(enabled bool) Option {
	return func(s *Settings) { s.Provision = enabled }
}

func WithSetupSystemService(enabled bool) Option {
	return func(s *Settings) { s.SetupSystemService = enabled }
}

func WithStart(enabled bool) Option {
	return func(s *Settings) { s.Start = enabled }
}

func WithComponentDefaultUser(user string) Option {
	return func(s *Settings) {
		if user != "" {
			s.ComponentDefaultUser = user
		}
	}
}
