package config

import "os"

// Environment variable names.
const (
	envServerURL    = "STOCKCTL_SERVER_URL"
	envOrganization = "STOCKCTL_ORGANIZATION"
	envLogLevel     = "STOCKCTL_LOG_LEVEL"
	envDataDir      = "STOCKCTL_DATA_DIR"
)

// ReadEnvOverrides reads the STOCKCTL_* environment layer.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ServerURL:    os.Getenv(envServerURL),
		Organization: os.Getenv(envOrganization),
		LogLevel:     os.Getenv(envLogLevel),
		DataDir:      os.Getenv(envDataDir),
	}
}
