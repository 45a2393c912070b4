// Package svcctx carries the services commands share through a context.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/tablescan/internal/config"
	"github.com/jackzampolin/tablescan/internal/home"
	"github.com/jackzampolin/tablescan/internal/profile"
)

// Services holds the loaded configuration and what is derived from it.
type Services struct {
	Config   *config.Config
	Home     *home.Dir
	Logger   *slog.Logger
	Profiles *profile.Registry
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// LoggerFrom extracts the logger from context, or slog.Default().
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// ProfilesFrom extracts the profile registry from context.
func ProfilesFrom(ctx context.Context) *profile.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Profiles
	}
	return nil
}
