package repository

import (
	"context"

	"usersvc/internal/models"
	"usersvc/internal/observability"

	"gorm.io/gorm"
)

// BiometricTokenRepository stores device login tokens.
type BiometricTokenRepository interface {
	Create(ctx context.Context, userID uint, token string) error
	FindUser(ctx context.Context, token string) (*models.User, error)
	Delete(ctx context.Context, userID uint, token string) error
}

type biometricTokenRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewBiometricTokenRepository returns a new BiometricTokenRepository implementation.
func NewBiometricTokenRepository(db *gorm.DB) BiometricTokenRepository {
	return &biometricTokenRepository{db: db, logger: observability.NewRepoLogger("biometric_tokens")}
}

func (r *biometricTokenRepository) Create(ctx context.Context, userID uint, token string) error {
	if err := r.db.WithContext(ctx).Create(&models.BiometricToken{UserID: userID, Token: token}).Error; err != nil {
		if dup := asDuplicate(err); dup != nil {
			return dup
		}
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]any{"user_id": userID})
	return nil
}

// FindUser returns the owner of token, or models.ErrUserNotFound.
func (r *biometricTokenRepository) FindUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := readDB(r.db).WithContext(ctx).
		Select("users.*").
		Joins("JOIN biometric_tokens ON biometric_tokens.user_id = users.id").
		Where("biometric_tokens.token = ?", token).
		First(&user).Error
	if err != nil {
		return nil, translateUserError(err)
	}
	return &user, nil
}

// Delete removes the token for that user only; missing rows are not an error.
func (r *biometricTokenRepository) Delete(ctx context.Context, userID uint, token string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.BiometricToken{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	r.logger.LogDelete(ctx, map[string]any{"user_id": userID, "rows": res.RowsAffected})
	return nil
}
