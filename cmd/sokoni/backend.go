package main

import (
	"context"
	"errors"

	"github.com/sokoniarena/sokoni/internal/auth"
	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/notify"
	"github.com/sokoniarena/sokoni/internal/store"
	"github.com/sokoniarena/sokoni/internal/supabase"
)

var errNoBackend = errors.New("supabase.url and supabase.anon_key must be set")

// anonClient returns the public Supabase client, or nil when the backend
// is not configured.
func anonClient() (*supabase.Client, error) {
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, nil
	}
	return supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.AnonKey})
}

// serviceClient returns a client using the service key, falling back to
// the anon key.
func serviceClient() (*supabase.Client, error) {
	key := cfg.Supabase.ServiceKey
	if key == "" {
		key = cfg.Supabase.AnonKey
	}
	if cfg.Supabase.URL == "" || key == "" {
		return nil, nil
	}
	return supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: key})
}

// newFetcher returns the listings source. Without a backend it serves an
// empty catalog so the browser still runs.
func newFetcher() (listings.Fetcher, error) {
	client, err := anonClient()
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Warn("no backend configured, listings will be empty", "error", errNoBackend)
		return listings.NewMemoryFetcher(nil), nil
	}
	return listings.NewSupabaseFetcher(client), nil
}

// notifier bundles the negotiator with its background worker.
type notifier struct {
	*notify.Negotiator
	desktop *notify.DesktopCapability
	worker  *notify.Worker
}

// newNotifier wires the desktop capability, the delivery worker and the
// negotiator. A missing session bus leaves notifications unsupported.
func newNotifier(ctx context.Context, kv store.KV, prompter notify.Prompter) *notifier {
	n := &notifier{}

	var capability notify.Capability
	desktop, err := notify.NewDesktopCapability(kv, prompter, cfg.Prompts.AppName, logger)
	if err != nil {
		logger.Debug("desktop notifications unavailable", "error", err)
	} else {
		capability = desktop
		n.desktop = desktop
		n.worker = notify.NewWorker(desktop, logger)
		n.worker.Start(ctx)
		go func() {
			if err := desktop.WatchClosed(ctx); err != nil && ctx.Err() == nil {
				logger.Debug("stopped watching closed notifications", "error", err)
			}
		}()
	}

	n.Negotiator = notify.NewNegotiator(capability, logger)
	n.SetAssets(cfg.Prompts.Icon, cfg.Prompts.Badge)
	if n.worker != nil {
		n.SetWorker(n.worker)
	}
	return n
}

// close stops the worker. Pending deliveries are dropped.
func (n *notifier) close() {
	if n.worker != nil {
		n.worker.Stop()
	}
}

// resolveSession reports whether token belongs to a signed-in user.
func resolveSession(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	client, err := anonClient()
	if err != nil {
		logger.Warn("failed to create backend client", "error", err)
		return false
	}
	verifier := auth.NewTokenVerifier(cfg.Supabase.JWTSecret, client, logger)
	user, err := verifier.Resolve(ctx, token)
	if err != nil {
		logger.Warn("access token rejected", "error", err)
		return false
	}
	return user != nil
}
