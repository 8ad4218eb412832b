package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/server"
	"github.com/sheetdrop/sheetdrop/internal/service"
)

const banner = `
     _            _      _
 ___| |_  ___ ___| |_ __| |_ _ ___ _ __
(_-<| ' \/ -_) -_)  _/ _` + "`" + ` | '_/ _ \ '_ \
/__/|_||_\___\___|\__\__,_|_| \___/ .__/
                                  |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sheetdrop API server",
		Long:  "Start the HTTP server that exposes the registration, login, approval, and spreadsheet upload APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger := newLogger(cfg.Logging.Level, dev)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", cfg.Storage.Driver)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "sheetdrop-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using insecure development secret")
	}
	tokens := service.NewTokenIssuer(jwtSecret, config.Duration(cfg.Auth.TokenTTL, service.DefaultTokenTTL))
	authSvc := service.NewAuthService(st, tokens, logger, service.AuthConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		BcryptCost:        cfg.Auth.BcryptCost,
		RetainRejected:    cfg.Auth.RetainRejected,
	})
	sheetSvc := service.NewSheetService(st, logger, service.SheetConfig{
		Dir:          cfg.Uploads.Dir,
		MaxSizeBytes: cfg.Uploads.MaxSizeBytes,
	})

	hasSuper, err := st.HasSuperAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for super admin", "error", err)
	}
	if !hasSuper {
		logger.Warn("no super admin account found - run: sheetdrop admin init")
	}

	srvCfg := server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ShutdownTimeout:    config.Duration(cfg.Server.ShutdownTimeout, server.DefaultConfig().ShutdownTimeout),
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		MaxBodySize:        cfg.Uploads.MaxSizeBytes + 2*1024*1024, // headroom for multipart framing
		Version:            versionString(),
	}

	srv := server.New(srvCfg, st, authSvc, sheetSvc, logger)

	fmt.Printf("→ Sheetdrop %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI: http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
