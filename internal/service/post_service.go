package service

import (
	"context"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultTagLimit is the number of tags returned when the caller gives none.
const DefaultTagLimit = 5

// EventPublisher receives post events after the write commits.
type EventPublisher interface {
	Publish(ctx context.Context, evt notifications.Event) error
}

type PostService struct {
	postRepo         repository.PostRepository
	events           EventPublisher
	cache            *cache.Cache
	enforceOwnership bool
}

type CreatePostInput struct {
	UserID   uint
	Title    string
	Text     string
	ImageURL string
	Tags     []string
}

type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Title    string
	Text     string
	ImageURL string
	Tags     []string
}

type RemovePostInput struct {
	UserID uint
	PostID uint
}

// NewPostService wires the post lifecycle. events and c may be nil. When
// enforceOwnership is false any authenticated subject may update or delete
// any post, and an update transfers the post to that subject.
func NewPostService(
	postRepo repository.PostRepository,
	events EventPublisher,
	c *cache.Cache,
	enforceOwnership bool,
) *PostService {
	return &PostService{
		postRepo:         postRepo,
		events:           events,
		cache:            c,
		enforceOwnership: enforceOwnership,
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "create", attribute.Int64("user.id", int64(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePostContent(in.Title, in.Text, in.ImageURL, in.Tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{
		Title:    strings.TrimSpace(in.Title),
		Text:     strings.TrimSpace(in.Text),
		ImageURL: in.ImageURL,
		Tags:     validation.NormalizeTags(in.Tags),
		UserID:   in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.Inc()
	s.invalidateTags(ctx)
	s.publish(ctx, notifications.NewPostCreated(post))

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetAll returns every post, newest first.
func (s *PostService) GetAll(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetOne records a view and returns the post with the updated counter.
func (s *PostService) GetOne(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "get_one", attribute.Int64("post.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.postRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	observability.PostViews.Inc()
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "update", attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePostContent(in.Title, in.Text, in.ImageURL, in.Tags); err != nil {
		return models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(post, in.UserID); err != nil {
		return err
	}

	post.Title = strings.TrimSpace(in.Title)
	post.Text = strings.TrimSpace(in.Text)
	post.ImageURL = in.ImageURL
	post.Tags = validation.NormalizeTags(in.Tags)
	post.UserID = in.UserID

	if err := s.postRepo.Update(ctx, post); err != nil {
		return err
	}
	s.invalidateTags(ctx)
	return nil
}

func (s *PostService) Remove(ctx context.Context, in RemovePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "remove", attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(post, in.UserID); err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return err
	}
	s.invalidateTags(ctx)
	return nil
}

// RecentTags flattens the tags of the limit newest posts, newest first, and
// truncates the result to limit entries. Duplicates are kept.
func (s *PostService) RecentTags(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultTagLimit
	}

	fetch := func() ([]string, error) {
		posts, err := s.postRepo.ListRecent(ctx, limit)
		if err != nil {
			return nil, err
		}
		return flattenTags(posts, limit), nil
	}

	if limit != DefaultTagLimit {
		return fetch()
	}

	gen, err := s.cache.Generation(ctx, cache.RecentTagsGenKey)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "tag cache unavailable", "error", err)
		return fetch()
	}

	var tags []string
	err = s.cache.Aside(ctx, cache.RecentTagsKey(limit, gen), &tags, cache.RecentTagsTTL, func() error {
		var fetchErr error
		tags, fetchErr = fetch()
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func flattenTags(posts []*models.Post, limit int) []string {
	tags := make([]string, 0, limit)
	for _, p := range posts {
		for _, tag := range p.Tags {
			if len(tags) == limit {
				return tags
			}
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *PostService) checkOwner(post *models.Post, userID uint) error {
	if s.enforceOwnership && post.UserID != userID {
		return models.NewUnauthorizedError(models.MsgForeignPost)
	}
	return nil
}

func (s *PostService) invalidateTags(ctx context.Context) {
	s.cache.Bump(ctx, cache.RecentTagsGenKey)
}

func (s *PostService) publish(ctx context.Context, evt notifications.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish post event",
			"type", evt.Type, "post_id", evt.PostID, "error", err)
	}
}
