// Package validation checks request input for the auth and post endpoints.
package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 5
	// MaxPasswordBytes is the longest input bcrypt hashes without truncation.
	MaxPasswordBytes  = 72
	MinFullNameLength = 3
	MaxTitleLength    = 300
	MaxTextLength     = 50000
	MaxTags           = 20
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrEmailFormat   = errors.New("Неверный формат почты")
	ErrPasswordShort = errors.New("Пароль должен быть минимум 5 символов")
	ErrPasswordLong  = errors.New("Пароль должен быть не длиннее 72 байт")
	ErrFullName      = errors.New("Укажите имя")
	ErrAvatarURL     = errors.New("Неверная ссылка на аватарку")
	ErrTitleRequired = errors.New("Введите заголовок статьи")
	ErrTitleTooLong  = errors.New("Заголовок статьи слишком длинный")
	ErrTextRequired  = errors.New("Введите текст статьи")
	ErrTextTooLong   = errors.New("Текст статьи слишком длинный")
	ErrTags          = errors.New("Неверный формат тэгов")
	ErrImageURL      = errors.New("Неверная ссылка на изображение")
)

// ValidateEmail checks the address shape only; deliverability is not verified.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrEmailFormat
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordLong
	}
	return nil
}

func ValidateFullName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < MinFullNameLength {
		return ErrFullName
	}
	return nil
}

// ValidateOptionalURL accepts an empty string or an absolute http(s) URL.
func ValidateOptionalURL(raw string, errInvalid error) error {
	if raw == "" {
		return nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalid
	}
	return nil
}

// ValidatePostContent applies the rules shared by post create and update.
func ValidatePostContent(title, text, imageURL string, tags []string) error {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return ErrTitleRequired
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return ErrTitleTooLong
	}

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return ErrTextRequired
	case utf8.RuneCountInString(text) > MaxTextLength:
		return ErrTextTooLong
	}

	if len(tags) > MaxTags {
		return ErrTags
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return ErrTags
		}
	}

	return ValidateOptionalURL(imageURL, ErrImageURL)
}

// NormalizeTags trims every tag, keeping order. A nil input yields an empty slice.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.TrimSpace(tag))
	}
	return out
}
