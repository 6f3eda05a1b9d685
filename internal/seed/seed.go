package seed

import (
	"context"
	"fmt"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Seeder fills the database with generated authors and posts.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder generating data with f.
func NewSeeder(db *gorm.DB, f *Factory, opts Options) *Seeder {
	return &Seeder{db: db, factory: f, opts: opts}
}

// ClearAll removes every post and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Run creates NumUsers authors and spreads NumPosts posts across them.
func (s *Seeder) Run(ctx context.Context) ([]*models.User, []*models.Post, error) {
	if s.opts.NumUsers <= 0 {
		return nil, nil, nil
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return users, nil, err
		}
		u, err := s.factory.CreateUser()
		if err != nil {
			return users, nil, err
		}
		users = append(users, u)
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		posts = append(posts, s.factory.BuildPost(users[i%len(users)]))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return users, nil, fmt.Errorf("create posts: %w", err)
	}

	middleware.Logger.Info("seeding complete", "users", len(users), "posts", len(posts))
	return users, posts, nil
}
