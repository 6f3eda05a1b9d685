package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is a hand-written data set, usually loaded from YAML:
//
//	users:
//	  - email: anna@example.com
//	    fullName: Anna
//	    password: secret
//	posts:
//	  - author: anna@example.com
//	    title: Hello
//	    text: First post
//	    tags: [intro]
type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
	Posts []FixturePost `yaml:"posts"`
}

// FixtureUser describes an author. Password defaults to DefaultPassword.
type FixtureUser struct {
	Email     string `yaml:"email"`
	FullName  string `yaml:"fullName"`
	Password  string `yaml:"password"`
	AvatarURL string `yaml:"avatarUrl"`
}

// FixturePost describes a post. Author is the e-mail of a fixture or existing user.
type FixturePost struct {
	Author    string    `yaml:"author"`
	Title     string    `yaml:"title"`
	Text      string    `yaml:"text"`
	ImageURL  string    `yaml:"imageUrl"`
	Tags      []string  `yaml:"tags"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// ApplyStats counts the rows created by ApplyFixtures.
type ApplyStats struct {
	Users int
	Posts int
}

// LoadFixtures reads and parses a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML fixtures and checks that every post has an
// author, a title and a text.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("fixture user %d: email is required", i)
		}
	}
	for i, p := range fx.Posts {
		if p.Author == "" || strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("fixture post %d: author, title and text are required", i)
		}
	}
	return &fx, nil
}

// ApplyFixtures inserts fixtures that are not present yet. Users are matched
// by e-mail and posts by text, so applying the same file twice is a no-op.
func ApplyFixtures(ctx context.Context, db *gorm.DB, hasher *auth.Hasher, fx *Fixtures) (ApplyStats, error) {
	var stats ApplyStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(fx.Users))

		for _, fu := range fx.Users {
			email := strings.ToLower(strings.TrimSpace(fu.Email))
			var existing models.User
			err := tx.Where("email = ?", email).First(&existing).Error
			switch {
			case err == nil:
				ids[email] = existing.ID
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			password := fu.Password
			if password == "" {
				password = DefaultPassword
			}
			digest, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			user := &models.User{
				Email:        email,
				FullName:     fu.FullName,
				PasswordHash: digest,
				AvatarURL:    fu.AvatarURL,
			}
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("create fixture user %s: %w", email, err)
			}
			ids[email] = user.ID
			stats.Users++
		}

		for _, fp := range fx.Posts {
			author := strings.ToLower(strings.TrimSpace(fp.Author))
			userID, ok := ids[author]
			if !ok {
				var u models.User
				if err := tx.Where("email = ?", author).First(&u).Error; err != nil {
					return fmt.Errorf("fixture post %q: unknown author %s: %w", fp.Title, author, err)
				}
				userID = u.ID
				ids[author] = userID
			}

			text := strings.TrimSpace(fp.Text)
			var count int64
			if err := tx.Model(&models.Post{}).
				Where("text_digest = ?", models.DigestText(text)).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			post := &models.Post{
				Title:     strings.TrimSpace(fp.Title),
				Text:      text,
				ImageURL:  fp.ImageURL,
				Tags:      fp.Tags,
				UserID:    userID,
				CreatedAt: fp.CreatedAt,
			}
			if err := tx.Create(post).Error; err != nil {
				return fmt.Errorf("create fixture post %q: %w", post.Title, err)
			}
			stats.Posts++
		}
		return nil
	})
	return stats, err
}
