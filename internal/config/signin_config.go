package config

type SignInConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
}

type SignIn struct{}

var _ SignInConfig = SignIn{}

// GetIssuerURL returns the OIDC issuer of the external authentication
// provider. Discovery runs against this URL.
func (SignIn) GetIssuerURL() string {
	return GetEnv("ISSUER_URL", "http://localhost:9090")
}

func (SignIn) GetClientID() string {
	return GetEnv("CLIENT_ID", "divegate")
}

func (SignIn) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

func (SignIn) GetScopes() []string {
	return []string{"openid", "profile", "email", "offline_access"}
}
