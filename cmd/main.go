package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"atelier/internal/cache"
	"atelier/internal/config"
	httpapi "atelier/internal/http"
	"atelier/internal/notify"
	"atelier/internal/repository"
	"atelier/internal/service"

	_ "atelier/docs"
)

// @title Atelier API
// @version 1.0
// @description Catalog, custom designs and order placement.
// @host localhost:9091
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := &cli.App{
		Name:  "atelier",
		Usage: "order placement service",
		Flags: config.Flags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true, Usage: "subject (user id)"},
					&cli.BoolFlag{Name: "admin", Usage: "grant the admin role"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: mintToken,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*repository.Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		return repository.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.StorePostgres:
		return repository.NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return repository.NewMemory(), nil
	}
}

func openNotifier(cfg config.Config) (notify.Notifier, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return notify.NewLogNotifier(), nil
	}
	return notify.NewKafkaNotifier(notify.KafkaConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		Username: cfg.Kafka.Username,
		Password: cfg.Kafka.Password,
	})
}

func serve(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := openStore(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	notifier, err := openNotifier(cfg)
	if err != nil {
		_ = store.Close(context.Background())
		return err
	}

	productsSvc := service.NewProductService(store.Products, cfg.CacheTTL, cache.SystemClock)
	srv := httpapi.NewServer(httpapi.Services{
		Products: productsSvc,
		Studio:   service.NewStudioService(store.StudioProducts),
		Designs:  service.NewDesignService(store.Designs, store.StudioProducts),
		Orders:   service.NewOrderService(store, productsSvc, notifier),
	}, httpapi.NewAuthenticator(cfg.JWTSecret))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s (store=%s)", httpServer.Addr, cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		log.Printf("notifier close: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("store close: %v", err)
	}
	return serveErr
}

func mintToken(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt-secret is required")
	}
	role := httpapi.RoleUser
	if c.Bool("admin") {
		role = httpapi.RoleAdmin
	}
	token, err := httpapi.NewAuthenticator(cfg.JWTSecret).GenerateToken(c.String("user"), role, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
