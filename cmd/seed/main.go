// Command main runs the database seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of authors to create")
	numPosts := flag.Int("posts", 50, "Number of posts to create")
	maxDays := flag.Int("days", 90, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", false, "Delete all users and posts before seeding")
	fixtures := flag.String("fixtures", "", "YAML fixtures file to apply instead of generated data")
	dryRun := flag.Bool("dry-run", false, "Build data without writing to the database")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	hasher := auth.NewHasher(cfg.BcryptCost)
	opts := seed.Options{NumUsers: *numUsers, NumPosts: *numPosts, MaxDays: *maxDays, DryRun: *dryRun}

	factory, err := seed.NewFactory(db, hasher, opts)
	if err != nil {
		log.Fatalf("Failed to prepare factory: %v", err)
	}
	s := seed.NewSeeder(db, factory, opts)

	if *shouldClean && !*dryRun {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *fixtures != "" {
		fx, err := seed.LoadFixtures(*fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		stats, err := seed.ApplyFixtures(ctx, db, hasher, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Applied fixtures: %d users, %d posts", stats.Users, stats.Posts)
		return
	}

	log.Printf("Target: %d users, %d posts, clean=%v, dry-run=%v", *numUsers, *numPosts, *shouldClean, *dryRun)
	if _, _, err := s.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All done. Every generated author has the password: %s", seed.DefaultPassword)
}
