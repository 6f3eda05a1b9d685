package database

import (
	"fmt"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

const postsUserFK = "fk_posts_user"

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{&models.User{}, &models.Post{}}
}

// Migrate brings the schema up to date. On PostgreSQL it also adds the
// posts.user_id foreign key, which GORM cannot derive without a belongs-to field.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if db.Dialector.Name() == "postgres" && !db.Migrator().HasConstraint(&models.Post{}, postsUserFK) {
		err := db.Exec(`ALTER TABLE posts ADD CONSTRAINT ` + postsUserFK +
			` FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`).Error
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", postsUserFK, err)
		}
	}

	middleware.Logger.Info("Database migration completed")
	return nil
}
