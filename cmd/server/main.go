package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/localsend-web/server/internal/api"
	"github.com/localsend-web/server/internal/config"
	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/metrics"
	"github.com/localsend-web/server/internal/session"
	"github.com/localsend-web/server/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default: localsend-web.yaml next to the executable)")
	flag.Parse()

	if *configPath == "" {
		// Get the executable's directory for config resolution
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "localsend-web.yaml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	}); err != nil {
		fmt.Printf("Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := run(cfg, *configPath); err != nil {
		logging.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string) error {
	loader, err := session.NewLoader(session.LoaderOptions{
		BaseURL:            cfg.Upstream.BaseURL,
		Timeout:            cfg.Upstream.Timeout,
		InsecureSkipVerify: cfg.Upstream.InsecureSkipVerify,
		MaxManifestBytes:   cfg.Upstream.MaxManifestBytes,
	})
	if err != nil {
		return fmt.Errorf("create session loader: %w", err)
	}

	pageMgr := session.NewManager(loader, cfg.Pages.MaxPages)

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	api.SetShowErrorDetails(cfg.Logging.Format == "console")
	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		Compression:      cfg.Advanced.EnableCompression,
		CompressionLevel: cfg.Advanced.CompressionLevel,
		BodyLimit:        cfg.Server.BodyLimit,
		EnableCORS:       cfg.Server.EnableCORS,
		AllowOrigins:     cfg.Server.AllowOrigins,
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Manager: pageMgr,
		Origins: api.LinkOrigins{
			PublicOrigin: cfg.Server.PublicOrigin,
			ProxyAPI:     cfg.Upstream.ProxyAPI,
			UpstreamURL:  loader.BaseURL(),
		},
		UpstreamURL: loader.BaseURL(),
		Version:     Version,
	}))

	if cfg.Upstream.ProxyAPI {
		if err := api.RegisterUpstreamProxy(e, cfg.Upstream.BaseURL, cfg.Upstream.InsecureSkipVerify); err != nil {
			return err
		}
	}

	if cfg.Advanced.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	if err := web.RegisterStaticRoutes(e); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	// Configure server with settings from the YAML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	printBanner(cfg, configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.L().Info("server listening",
			zap.String("addr", s.Addr),
			zap.String("upstream", loader.BaseURL()),
			zap.Bool("proxy_api", cfg.Upstream.ProxyAPI),
		)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Background page cleanup
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Pages.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				pageMgr.CleanupOldPages(cfg.Pages.MaxAge)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printBanner(cfg *config.AppConfig, configPath string) {
	proxy := "off"
	if cfg.Upstream.ProxyAPI {
		proxy = "on"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           LocalSend Web Download                          ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  API Proxy:  %-45s║\n", proxy)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Upstream:  %-46s║\n", cfg.Upstream.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
