// Package runtime wires configuration into live service clients. This package
// is separate from cmd to keep command code free of construction details.
package runtime

import (
	"log/slog"

	"github.com/mwhitford/ringlead/internal/config"
	"github.com/mwhitford/ringlead/internal/crm"
	"github.com/mwhitford/ringlead/internal/engine"
	"github.com/mwhitford/ringlead/internal/pbx"
)

// The concrete clients satisfy the engine's collaborator interfaces.
var (
	_ engine.CallSource = (*pbx.Client)(nil)
	_ engine.CrmStore   = (*crm.Client)(nil)
)

// Services holds the constructed clients a command run needs.
type Services struct {
	ConfigManager *config.Manager
	Source        *pbx.Client
	Store         *crm.Client
	Logger        *slog.Logger
}

// Build constructs the service set from configuration. Credential fields are
// env-resolved here so the rest of the program only ever sees final values.
func Build(cm *config.Manager, logger *slog.Logger) *Services {
	cfg := cm.Get()
	pbxCfg := cfg.ResolvedPBX()
	crmCfg := cfg.ResolvedCRM()

	source := pbx.New(pbx.Config{
		BaseURL:      pbxCfg.ServerURL,
		MediaBaseURL: pbxCfg.MediaURL,
		ClientID:     pbxCfg.ClientID,
		ClientSecret: pbxCfg.ClientSecret,
		JWT:          pbxCfg.JWT,
		AccountID:    pbxCfg.AccountID,
		PerPage:      pbxCfg.PerPage,
	}, logger)

	store := crm.New(crm.Config{
		AccountsURL:  crmCfg.AccountsURL,
		BaseURL:      crmCfg.APIURL,
		ClientID:     crmCfg.ClientID,
		ClientSecret: crmCfg.ClientSecret,
		RefreshToken: crmCfg.RefreshToken,
	}, logger)

	return &Services{
		ConfigManager: cm,
		Source:        source,
		Store:         store,
		Logger:        logger,
	}
}
