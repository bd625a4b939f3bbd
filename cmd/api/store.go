package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/config"
	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/infrastructure/dynamo"
	"github.com/gallery-live/internal/infrastructure/memory"
	"github.com/gallery-live/internal/infrastructure/postgres"
	"github.com/gallery-live/internal/transport/http/handler"
)

// directory resolves audiences and learns artwork ownership from uploads.
type directory interface {
	notification.Directory
	notification.ArtworkRecorder
}

// store is the backend selected by STORE_DRIVER.
type store struct {
	notifications notification.Repository
	directory     directory
	check         handler.Check
	close         func()
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Creates tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		table := cfg.DynamoTables.Notifications
		return &store{
			notifications: dynamo.NewNotificationRepo(client, table),
			directory:     dynamo.NewDirectory(client, cfg.DynamoTables.Users, cfg.DynamoTables.Artworks),
			check: func(ctx context.Context) error {
				_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
				return err
			},
			close: func() {},
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			notifications: postgres.NewNotificationRepository(db),
			directory:     postgres.NewDirectory(db),
			check:         func(ctx context.Context) error { return db.PingContext(ctx) },
			close:         func() { _ = db.Close() },
		}, nil

	case config.DriverMemory:
		dir := memory.NewDirectory()
		users, err := parseSeedUsers(cfg.SeedUsers)
		if err != nil {
			return nil, err
		}
		dir.SeedUsers(users...)
		log.Warn("using in-memory store, notifications are lost on restart", slog.Int("seeded_users", len(users)))
		return &store{
			notifications: memory.NewNotificationStore(),
			directory:     dir,
			check:         func(context.Context) error { return nil },
			close:         func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// parseSeedUsers reads "userID:role" pairs.
func parseSeedUsers(pairs []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(pairs))
	for _, p := range pairs {
		userID, role, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok || userID == "" || !domain.ValidRole(role) {
			return nil, fmt.Errorf("invalid SEED_USERS entry %q: want userID:role", p)
		}
		users = append(users, domain.User{UserID: userID, DisplayName: userID, Role: role})
	}
	return users, nil
}
