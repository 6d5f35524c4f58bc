package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sokoniarena/sokoni/internal/auth"
	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/mailer"
	"github.com/sokoniarena/sokoni/internal/server"
)

var serveOpts struct {
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backend HTTP endpoints",
	Long: `Serve the SokoniArena backend endpoints:

  GET  /healthz            Liveness probe
  GET  /api/listings       Listings page (type=events|services, category, search, sort)
  GET  /auth/callback      Email verification landing, redirects to /dashboard or /login
  POST /hooks/send-email   Supabase send-email hook, delivers via Brevo

Routes whose backend is not configured are not registered. The email hook
responds with "Email service not configured" until email.brevo_api_key is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "",
		"Listen address (default: server.listen from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := server.Options{Logger: logger}

	anon, err := anonClient()
	if err != nil {
		return err
	}
	if anon != nil {
		opts.Listings = listings.NewSupabaseFetcher(anon)

		service, err := serviceClient()
		if err != nil {
			return err
		}
		opts.Callback = auth.NewCallback(
			auth.NewTokenVerifier(cfg.Supabase.JWTSecret, anon, logger),
			auth.NewSupabaseProfiles(service),
			logger,
		)
	} else {
		logger.Warn("listings and auth callback disabled", "error", errNoBackend)
	}

	hook, err := newEmailHook()
	if err != nil {
		return err
	}
	opts.EmailHook = hook

	listen := serveOpts.listen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	logger.Info("serving", "addr", listen)
	return server.New(opts).ListenAndServe(ctx, listen)
}

func newEmailHook() (http.Handler, error) {
	hc := mailer.HandlerConfig{
		HookSecret:    cfg.Email.HookSecret,
		Tolerance:     cfg.Email.HookTolerance.Duration(),
		SupabaseURL:   cfg.Supabase.URL,
		ProductionURL: cfg.Server.ProductionURL,
		From:          mailer.Address{Name: cfg.Email.SenderName, Email: cfg.Email.SenderEmail},
		Subject:       cfg.Email.Subject,
		Logger:        logger,
	}
	if cfg.Email.BrevoAPIKey != "" {
		hc.Sender = mailer.NewBrevoClient(cfg.Email.BrevoAPIKey, cfg.Email.BrevoEndpoint, nil)
	} else {
		logger.Warn("email.brevo_api_key not set, confirmation emails disabled")
	}
	if cfg.Email.HookSecret == "" {
		logger.Warn("email.hook_secret not set, hook signatures are not verified")
	}
	h, err := mailer.NewHandler(hc)
	if err != nil {
		return nil, fmt.Errorf("invalid email.hook_secret: %w", err)
	}
	return h, nil
}
