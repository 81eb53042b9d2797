package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/delivery"
	"github.com/shandysiswandi/otpgate/internal/otpauth"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otpauth.enabled") {
		if err := otpauth.New(otpauth.Dependency{
			DBConn:      a.dbConn,
			CacheConn:   a.cacheConn,
			Goroutine:   a.goroutine,
			Router:      a.router,
			Messaging:   a.messaging,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			HMAC:        a.hmac,
			Generator:   a.generator,
			Clock:       a.clock,
			Validator:   a.validator,
			JWT:         a.jwt,
			Mailer:      a.mail,
			Collections: a.collectionsFromConfig(),
		}); err != nil {
			slog.Error("failed to init module otpauth", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.delivery.enabled") {
		if err := delivery.New(delivery.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Mail:       a.mail,
		}); err != nil {
			slog.Error("failed to init module delivery", "error", err)
			os.Exit(1)
		}
	}
}

// collectionsFromConfig enrolls the collections named under
// modules.otpauth.collections with their per-collection settings. Hooks are a
// code-level extension point and are not configurable here.
func (a *App) collectionsFromConfig() usecase.Collections {
	slugs := a.config.GetArray("modules.otpauth.collections")

	cols := make(usecase.Collections, len(slugs))
	for _, slug := range slugs {
		if slug == "" {
			continue
		}

		prefix := "collections." + slug + "."
		cols[slug] = usecase.CollectionOptions{
			Expiry:           a.config.GetSecond(prefix + "expiry_seconds"),
			DisableEmail:     a.config.GetBool(prefix + "disable_email"),
			HideToken:        a.config.GetBool(prefix + "hide_token"),
			MaxLoginAttempts: a.config.GetInt32(prefix + "max_login_attempts"),
			LockDuration:     a.config.GetMinute(prefix + "lock_minutes"),
		}
	}

	return cols
}
