package bootstrap

import (
	"context"
	"fmt"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// FixturesPath names a YAML fixtures file applied after connecting.
	FixturesPath string
}

// InitRuntime connects to DB and Redis and optionally loads fixtures.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.ConnectOptional(ctx, cfg.RedisURL)

	if opts.FixturesPath != "" {
		fixtures, err := seed.LoadFixtures(opts.FixturesPath)
		if err != nil {
			return nil, nil, err
		}
		stats, err := seed.ApplyFixtures(ctx, db, auth.NewHasher(cfg.BcryptCost), fixtures)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to apply fixtures: %w", err)
		}
		middleware.Logger.Info("fixtures applied", "path", opts.FixturesPath,
			"users", stats.Users, "posts", stats.Posts)
	}

	return db, r, nil
}
