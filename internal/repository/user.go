// Package repository implements the data access layer for the users service.
package repository

import (
	"context"
	"errors"
	"strings"

	"usersvc/internal/cache"
	"usersvc/internal/models"
	"usersvc/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateField(ctx context.Context, user *models.User, column string, value interface{}) error
	Delete(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query string, includeAdmins bool, offset, limit int) ([]models.User, error)
	SearchFollowed(ctx context.Context, followerID uint, query string, offset, limit int) ([]models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, logger: observability.NewRepoLogger("users")}
}

// cachedUser keeps the password hash, which models.User hides from JSON.
type cachedUser struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", "users")
	defer span.End()
	defer observability.TrackQuery("create", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if dup := asDuplicate(err); dup != nil {
			return dup
		}
		span.SetError(err)
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateUserError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByEmail", "users")
	defer span.End()
	defer observability.TrackQuery("get_by_email", "users")()

	var entry cachedUser
	err := cache.Aside(ctx, "user", cache.UserEmailKey(email), &entry, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("email = ?", email).First(&entry.User).Error; err != nil {
			return translateUserError(err)
		}
		entry.PasswordHash = entry.User.Password
		return nil
	})
	if err != nil {
		return nil, err
	}

	user := entry.User
	user.Password = entry.PasswordHash
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateUserError(err)
	}
	return &user, nil
}

// UpdateField writes a single column in its own transaction. A unique violation
// rolls back and is logged rather than returned.
func (r *userRepository) UpdateField(ctx context.Context, user *models.User, column string, value interface{}) error {
	defer observability.TrackQuery("update", "users")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update(column, value).Error
	})
	cache.InvalidateUserEmail(ctx, user.Email)

	if err != nil {
		r.logger.LogError(ctx, err, "update_"+column)
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]any{"user_id": user.ID, "column": column})
	return nil
}

// Delete removes the user with its follow edges, interests and biometric tokens.
func (r *userRepository) Delete(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followee_id = ?", user.ID, user.ID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Interest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.BiometricToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	cache.InvalidateUserEmail(ctx, user.Email)
	r.logger.LogDelete(ctx, map[string]any{"user_id": user.ID})
	return nil
}

// Search does a case-insensitive substring match on email, username, name and surname.
func (r *userRepository) Search(ctx context.Context, query string, includeAdmins bool, offset, limit int) ([]models.User, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Search", "users")
	defer span.End()
	defer observability.TrackQuery("search", "users")()

	pattern := "%" + strings.ToLower(query) + "%"
	q := readDB(r.db).WithContext(ctx).
		Where("(LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(surname) LIKE ?)",
			pattern, pattern, pattern, pattern)
	if !includeAdmins {
		q = q.Where("admin = ?", false)
	}

	var users []models.User
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// SearchFollowed does a case-insensitive prefix match restricted to users followerID follows.
func (r *userRepository) SearchFollowed(ctx context.Context, followerID uint, query string, offset, limit int) ([]models.User, error) {
	defer observability.TrackQuery("search_followed", "users")()

	pattern := strings.ToLower(query) + "%"
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Select("users.*").
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", followerID).
		Where("(LOWER(users.email) LIKE ? OR LOWER(users.username) LIKE ? OR LOWER(users.name) LIKE ? OR LOWER(users.surname) LIKE ?)",
			pattern, pattern, pattern, pattern).
		Order("follows.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func translateUserError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrUserNotFound
	}
	return models.NewInternalError(err)
}
