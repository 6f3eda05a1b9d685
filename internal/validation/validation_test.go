package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "writer@example.com", false},
		{"Shortest", "a@b.c", false},
		{"Missing At", "writer.example.com", true},
		{"Missing Domain Dot", "writer@example", true},
		{"Whitespace", "wri ter@example.com", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmailFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"Valid", "secret", nil},
		{"Exactly Min Length", "12345", nil},
		{"Too Short", "1234", ErrPasswordShort},
		{"Cyrillic Counts Runes", "пароль", nil},
		{"Exactly Max Bytes", strings.Repeat("a", 72), nil},
		{"Too Long", strings.Repeat("a", 73), ErrPasswordLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFullName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateFullName("Ann"))
	assert.NoError(t, ValidateFullName("Иван"))
	assert.ErrorIs(t, ValidateFullName("Al"), ErrFullName)
	assert.ErrorIs(t, ValidateFullName("   "), ErrFullName)
}

func TestValidateOptionalURL(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateOptionalURL("", ErrAvatarURL))
	assert.NoError(t, ValidateOptionalURL("https://cdn.example.com/a.png", ErrAvatarURL))
	assert.ErrorIs(t, ValidateOptionalURL("not a url", ErrAvatarURL), ErrAvatarURL)
	assert.ErrorIs(t, ValidateOptionalURL("/uploads/a.png", ErrAvatarURL), ErrAvatarURL)
	assert.ErrorIs(t, ValidateOptionalURL("ftp://example.com/a.png", ErrImageURL), ErrImageURL)
}

func TestValidatePostContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		title    string
		text     string
		imageURL string
		tags     []string
		wantErr  error
	}{
		{"Valid", "Hello", "World", "", []string{"go"}, nil},
		{"Nil Tags", "Hello", "World", "", nil, nil},
		{"Empty Title", "", "World", "", nil, ErrTitleRequired},
		{"Blank Title", "   ", "World", "", nil, ErrTitleRequired},
		{"Long Title", strings.Repeat("t", MaxTitleLength+1), "World", "", nil, ErrTitleTooLong},
		{"Empty Text", "Hello", "", "", nil, ErrTextRequired},
		{"Long Text", "Hello", strings.Repeat("x", MaxTextLength+1), "", nil, ErrTextTooLong},
		{"Blank Tag", "Hello", "World", "", []string{"go", " "}, ErrTags},
		{"Too Many Tags", "Hello", "World", "", make([]string, MaxTags+1), ErrTags},
		{"Bad Image", "Hello", "World", "img.png", nil, ErrImageURL},
		{"Good Image", "Hello", "World", "http://localhost:8375/uploads/img.png", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostContent(tt.title, tt.text, tt.imageURL, tt.tags)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{}, NormalizeTags(nil))
	assert.Equal(t, []string{"go", "sql"}, NormalizeTags([]string{" go", "sql "}))
}
