package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
}

type postRepository struct {
	db    *gorm.DB
	users UserRepository
}

// NewPostRepository returns a new PostRepository implementation. Posts read
// through GetByID and List carry their author summary.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, users: NewUserRepository(db)}
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateContentError(models.MsgDuplicatePostText, err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(models.MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	if err := r.attachAuthors(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := newestFirst(r.db.WithContext(ctx)).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.attachAuthors(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListRecent returns the limit newest posts without author summaries.
func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := newestFirst(r.db.WithContext(ctx)).Limit(limit).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Update replaces every mutable column of post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.TextDigest = models.DigestText(post.Text)
	post.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Model(post).
		Select("Title", "Text", "TextDigest", "Tags", "ImageURL", "UserID", "UpdatedAt").
		Updates(post)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewDuplicateContentError(models.MsgDuplicatePostText, res.Error)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(models.MsgPostNotFound)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(models.MsgPostNotFound)
	}
	return nil
}

// IncrementViews adds one view in a single UPDATE so concurrent readers never lose increments.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(models.MsgPostNotFound)
	}
	return nil
}

func (r *postRepository) attachAuthors(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(posts))
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			ids = append(ids, p.UserID)
		}
	}

	authors, err := r.users.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.User = authors[p.UserID]
	}
	return nil
}
