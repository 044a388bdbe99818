package midtrans

const (
	sandboxBaseURL    = "https://app.sandbox.midtrans.com"
	productionBaseURL = "https://app.midtrans.com"
)

// Config represents the configuration for the Midtrans Snap client
type Config struct {
	// ServerKey is the Midtrans server key used for API authentication
	// and notification signature verification
	ServerKey string

	// ClientKey is the Midtrans client key, exposed to the storefront
	// for the Snap popup
	ClientKey string

	// BaseURL overrides the API base URL; when empty, the sandbox or
	// production URL is chosen from IsProduction
	BaseURL string

	// IsProduction selects the production environment
	IsProduction bool
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerKey == "" {
		return ErrInvalidRequest
	}
	if c.ClientKey == "" {
		return ErrInvalidRequest
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.IsProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}
