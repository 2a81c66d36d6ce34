package internal

// Option configures Run and RunMCP at startup.
type Option func(*application)

// application collects the startup options before the entrypoints
// build their dependency graph from it.
type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration. Both entrypoints
// require it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
