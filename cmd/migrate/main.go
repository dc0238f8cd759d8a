package main

import (
	"context"
	"fmt"
	"time"

	"propdash/internal/auth"
	mongoMigration "propdash/internal/migrations/mongo"
	"propdash/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")

	err := migrateMongo(ctx, cfg)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrateMongo(ctx context.Context, cfg *config.Config) error {
	db := cfg.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		return err
	}

	if cfg.AuthSource != config.AuthSourceMongo || cfg.AuthUsers == "" {
		return nil
	}
	users, err := auth.ParseStaticUsers(cfg.AuthUsers)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", config.EnvAuthUsers, err)
	}
	store := auth.NewMongoCredentialStore(db, cfg.WriteTimeout)
	return mongoMigration.SeedUsers(ctx, store, users, cfg.Log)
}
