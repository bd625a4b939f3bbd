package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/config"
	jwtinfra "github.com/gallery-live/internal/infrastructure/jwt"
	redisinfra "github.com/gallery-live/internal/infrastructure/redis"
	s3infra "github.com/gallery-live/internal/infrastructure/s3"
	"github.com/gallery-live/internal/infrastructure/sns"
	"github.com/gallery-live/internal/pkg/id"
	"github.com/gallery-live/internal/pkg/logger"
	"github.com/gallery-live/internal/presence"
	transporthttp "github.com/gallery-live/internal/transport/http"
	"github.com/gallery-live/internal/transport/http/handler"
	"github.com/gallery-live/internal/transport/http/middleware"
	"github.com/gallery-live/internal/transport/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Stdout, cfg.LogLevel, logger.Format(cfg.LogFormat),
		slog.String("service", "gallery-live"), slog.String("env", cfg.AppEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.close()
	checks := map[string]handler.Check{"store": st.check}

	hub := presence.NewHub(
		presence.WithLogger(log.With(logger.Component("presence"))),
		presence.WithExhibitionLimit(cfg.Live.MaxExhibitions),
	)

	// Pushes go straight to the hub unless a relay fans them out to peers.
	var pusher notification.Pusher = hub
	if cfg.RedisURL != "" {
		client, err := redisinfra.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		relay := redisinfra.NewRelay(client, cfg.RedisChannel, id.NewConnectionID(), hub,
			redisinfra.WithRelayLogger(log.With(logger.Component("relay"))))
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("redis relay stopped", logger.Error(err))
			}
		}()
		pusher = relay
		checks["redis"] = relay.Ping
	}

	// Without keys only the public routes are served.
	var tokens middleware.TokenVerifier
	var wsTokens ws.TokenVerifier
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		tokens, wsTokens = p, p
	} else {
		log.Warn("JWT provider not available, authenticated routes disabled", logger.Error(err))
	}
	if cfg.AllowInsecureHandshake {
		if cfg.IsProduction() {
			return errors.New("ALLOW_INSECURE_HANDSHAKE must not be set in production")
		}
		log.Warn("live channel accepts handshakes without a token")
	}

	opts := []notification.DispatcherOption{
		notification.WithDispatcherLogger(log.With(logger.Component("dispatcher"))),
		notification.WithArtworkRecorder(st.directory),
	}
	if cfg.SNSTopicARN != "" {
		publisher, err := sns.NewOfflinePublisher(ctx, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, notification.WithOfflineNotifier(hub, publisher))
	}
	if cfg.S3BucketName != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, notification.WithThumbnailSigner(
			s3infra.NewThumbnailSigner(client, cfg.S3BucketName, cfg.ThumbnailURLTTL)))
	}
	dispatcher := notification.NewDispatcher(st.notifications, st.directory, pusher, opts...)

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Notifications: notification.NewService(st.notifications),
		Dispatcher:    dispatcher,
		Presence:      hub,
		Tokens:        tokens,
		Live:          ws.NewHandler(hub, wsTokens, cfg, log),
		Checks:        checks,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", srv.Addr), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	dispatcher.Wait()
	log.Info("server stopped")
	return nil
}
