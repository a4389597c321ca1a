package config

// Config holds ringlead configuration.
// Stored at: config.yaml (or the path given with --config)
type Config struct {
	PBX  PBXConfig  `mapstructure:"pbx" yaml:"pbx"`
	CRM  CRMConfig  `mapstructure:"crm" yaml:"crm"`
	Sync SyncConfig `mapstructure:"sync" yaml:"sync"`
}

// PBXConfig configures the RingCentral call log source.
type PBXConfig struct {
	ServerURL    string `mapstructure:"server_url" yaml:"server_url"`       // REST API host
	MediaURL     string `mapstructure:"media_url" yaml:"media_url"`         // Recording media host
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`         // App client id (supports ${ENV_VAR} syntax)
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"` // App client secret (supports ${ENV_VAR} syntax)
	JWT          string `mapstructure:"jwt" yaml:"jwt"`                     // JWT credential (supports ${ENV_VAR} syntax)
	AccountID    string `mapstructure:"account_id" yaml:"account_id"`       // Account selector, "~" means own account
	PerPage      int    `mapstructure:"per_page" yaml:"per_page"`           // Call log page size
}

// CRMConfig configures the Zoho CRM lead store.
type CRMConfig struct {
	AccountsURL  string `mapstructure:"accounts_url" yaml:"accounts_url"`   // OAuth token host
	APIURL       string `mapstructure:"api_url" yaml:"api_url"`             // REST API base, including version
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`         // OAuth client id (supports ${ENV_VAR} syntax)
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"` // OAuth client secret (supports ${ENV_VAR} syntax)
	RefreshToken string `mapstructure:"refresh_token" yaml:"refresh_token"` // Long-lived refresh token (supports ${ENV_VAR} syntax)
}

// SyncConfig specifies sync run defaults.
type SyncConfig struct {
	ExtensionsFile string `mapstructure:"extensions_file" yaml:"extensions_file"`   // JSON file listing monitored extensions
	LeadOwnersFile string `mapstructure:"lead_owners_file" yaml:"lead_owners_file"` // JSON file listing rotation owners
	HoursBack      int    `mapstructure:"hours_back" yaml:"hours_back"`             // Default lookback window when no dates given
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PBX: PBXConfig{
			ServerURL:    "https://platform.ringcentral.com",
			MediaURL:     "https://media.ringcentral.com",
			ClientID:     "${RINGCENTRAL_CLIENT_ID}",
			ClientSecret: "${RINGCENTRAL_CLIENT_SECRET}",
			JWT:          "${RINGCENTRAL_JWT}",
			AccountID:    "~",
			PerPage:      250,
		},
		CRM: CRMConfig{
			AccountsURL:  "https://accounts.zoho.com",
			APIURL:       "https://www.zohoapis.com/crm/v7",
			ClientID:     "${ZOHO_CLIENT_ID}",
			ClientSecret: "${ZOHO_CLIENT_SECRET}",
			RefreshToken: "${ZOHO_REFRESH_TOKEN}",
		},
		Sync: SyncConfig{
			ExtensionsFile: "extensions.json",
			LeadOwnersFile: "lead_owners.json",
			HoursBack:      24,
		},
	}
}

// ResolvedPBX returns the PBX config with ${ENV_VAR} credentials expanded.
func (c *Config) ResolvedPBX() PBXConfig {
	out := c.PBX
	out.ClientID = ResolveEnvVars(out.ClientID)
	out.ClientSecret = ResolveEnvVars(out.ClientSecret)
	out.JWT = ResolveEnvVars(out.JWT)
	return out
}

// ResolvedCRM returns the CRM config with ${ENV_VAR} credentials expanded.
func (c *Config) ResolvedCRM() CRMConfig {
	out := c.CRM
	out.ClientID = ResolveEnvVars(out.ClientID)
	out.ClientSecret = ResolveEnvVars(out.ClientSecret)
	out.RefreshToken = ResolveEnvVars(out.RefreshToken)
	return out
}
