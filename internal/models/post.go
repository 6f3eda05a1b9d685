package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Post is a blog article. Text is unique across all posts; uniqueness is
// enforced on TextDigest because btree indexes cannot hold long bodies.
type Post struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	Title      string       `gorm:"not null" json:"title"`
	Text       string       `gorm:"type:text;not null" json:"text"`
	TextDigest string       `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Tags       []string     `gorm:"serializer:json;type:jsonb;not null;default:'[]'" json:"tags"`
	ViewsCount int          `gorm:"not null;default:0" json:"viewsCount"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	UserID     uint         `gorm:"not null;index" json:"userId"`
	User       *UserSummary `gorm:"-" json:"user,omitempty"`
	CreatedAt  time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// BeforeSave keeps tags serialized as an empty JSON array rather than null
// and refreshes the text digest.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.TextDigest = DigestText(p.Text)
	return nil
}

// DigestText returns the hex SHA-256 of a post body.
func DigestText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
