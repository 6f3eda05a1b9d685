// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every generated author logs in with.
const DefaultPassword = "password123"

// Options configures the factory and the seeder.
type Options struct {
	NumUsers int
	NumPosts int
	// MaxDays bounds how far back generated posts are dated.
	MaxDays int
	// DryRun builds entities with synthetic IDs without touching the database.
	DryRun bool
}

// Factory builds blog entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	hasher *auth.Hasher
	opts   Options
	faker  *gofakeit.Faker
	rnd    *rand.Rand
	digest string
	nextID uint
}

// NewFactory creates a Factory bound to db. The default password is hashed
// once and shared by every generated author.
func NewFactory(db *gorm.DB, hasher *auth.Hasher, opts Options) (*Factory, error) {
	seed := time.Now().UnixNano()
	f := &Factory{
		db:     db,
		hasher: hasher,
		opts:   opts,
		faker:  gofakeit.New(seed),
		rnd:    rand.New(rand.NewSource(seed)),
		nextID: 1000,
	}
	if hasher != nil {
		digest, err := hasher.Hash(DefaultPassword)
		if err != nil {
			return nil, err
		}
		f.digest = digest
	}
	return f, nil
}

// BuildUser returns an unsaved author.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		FullName:     f.faker.Name(),
		Email:        fmt.Sprintf("%d.%s", f.faker.Number(100, 99999), f.faker.Email()),
		PasswordHash: f.digest,
		AvatarURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost returns an unsaved post by author, dated within the last MaxDays.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24*60))*time.Minute

	tags := make([]string, f.rnd.Intn(4))
	for i := range tags {
		tags[i] = f.faker.Noun()
	}

	post := &models.Post{
		// The UUID suffix keeps generated bodies unique.
		Title:     f.faker.Sentence(5),
		Text:      f.faker.Paragraph(2, 4, 12, "\n\n") + "\n\n" + f.faker.UUID(),
		Tags:      tags,
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/450", f.faker.UUID()),
		UserID:    author.ID,
		CreatedAt: time.Now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreateUser builds and persists an author.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return user, nil
}

// CreatePostsBatch persists posts in a single statement.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		return nil
	}
	return f.db.CreateInBatches(posts, 100).Error
}
