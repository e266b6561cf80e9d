package cli

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/payback159/passwordanalyzer/pkg/config"
	"github.com/payback159/passwordanalyzer/pkg/downloads"
	"github.com/payback159/passwordanalyzer/pkg/handlers"
	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/security"
	"github.com/payback159/passwordanalyzer/pkg/session"
	"github.com/payback159/passwordanalyzer/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	serveAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web form",
	Long: `Start the HTTP server. Settings come from the built-in defaults, the optional
YAML file given with --config and the ENV, PORT, LOG_LEVEL, CSRF_KEY and
COOKIE_HASH_KEY environment variables, in that order. --addr wins over all of them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}
	logging.InitLoggerWithLevel(cfg.LogLevel)

	start := time.Now()
	srv, cleanup, err := newServer(cfg)
	if err != nil {
		logging.LogCritical("Server setup failed", err)
		return err
	}
	defer cleanup()
	logging.LogPerformance("server_setup", time.Since(start),
		"env", cfg.Env,
		"template_dir", cfg.TemplateDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, srv)
}

func loadServeConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	return cfg, nil
}

// newServer wires the application for cfg. cleanup stops the background goroutines.
func newServer(cfg config.Config) (*http.Server, func(), error) {
	var (
		templates *template.Template
		err       error
	)
	if cfg.TemplateDir != "" {
		templates, err = web.TemplatesFromDir(cfg.TemplateDir)
	} else {
		templates, err = web.Templates()
	}
	if err != nil {
		return nil, nil, err
	}

	sessionTimeout := time.Duration(cfg.SessionTimeout) * time.Second
	cookies, err := session.NewCookies([]byte(cfg.CookieHashKey), cfg.IsProduction(), sessionTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("session cookies: %w", err)
	}

	store := session.NewStoreWithTimeout(sessionTimeout)
	limiter := security.NewRateLimiterWithLimits(cfg.RateLimit, cfg.RateBurst)
	limiter.TrustProxyHeaders = cfg.TrustProxyHeaders
	cleanup := func() {
		store.Close()
		limiter.Close()
	}

	h := handlers.NewHandler(templates, store, cookies, handlers.Options{
		Production:        cfg.IsProduction(),
		MaxPasswordLength: cfg.MaxPasswordLength,
		TrustedOrigins:    cfg.CSRFTrustedOrigins,
	})
	dl := downloads.NewHandler(store, cookies)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(dl, limiter, []byte(cfg.CSRFKey)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, cleanup, nil
}

// run serves until ctx is cancelled, then drains open connections
func run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logging.LogInfo("Server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	logging.LogInfo("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logging.LogInfo("Server stopped")
	logging.LogSystemStats()
	return nil
}
