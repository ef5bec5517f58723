package config

type Config interface {
	EnvConfig
	IdentityConfig
	SignInConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Identity
	SignIn
	Security
}

func New() Config {
	return mainConfig{}
}
