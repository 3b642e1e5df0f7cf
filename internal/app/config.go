package app

import (
	"pharmledger/internal/config"
	"pharmledger/internal/domain/alerts"
	"pharmledger/internal/domain/auth"
)

// OptionsFromConfig maps the loaded configuration onto service options.
// Cache and Scheduler are left for the caller to attach.
func OptionsFromConfig(cfg *config.Config) Options {
	jwt := auth.DefaultJWTConfig(cfg.Security.JWTSecret)
	if cfg.Security.JWTExpiration > 0 {
		jwt.AccessTokenTTL = cfg.Security.JWTExpiration
	}

	authCfg := auth.DefaultServiceConfig()
	if cfg.Security.BcryptCost > 0 {
		authCfg.BcryptCost = cfg.Security.BcryptCost
	}

	return Options{
		JWT:              jwt,
		Auth:             authCfg,
		CacheTTL:         cfg.Redis.DashboardTTL,
		ExpiryWindowDays: cfg.Alerts.ExpiryWindowDays,
		AlertRules:       alerts.MergeRules(alerts.DefaultRules(), cfg.Alerts.Rules),
	}
}
