package utils

import (
	"fmt"

	"github.com/getsentry/sentry-go"

	"ziwuxx-intake/config"
)

// InitSentry configures the global hub. Callers own sentry.Flush.
func InitSentry(cfg *config.Config) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.App.Env,
		Release:          cfg.App.Name + "@" + cfg.App.Version,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

func CaptureError(err error, context map[string]interface{}) {
	if hub := sentry.CurrentHub(); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			for k, v := range context {
				scope.SetExtra(k, v)
			}
			hub.CaptureException(err)
		})
	}
}
