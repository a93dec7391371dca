package repository

import (
	"context"

	"usersvc/internal/models"
	"usersvc/internal/observability"

	"gorm.io/gorm"
)

// InterestRepository stores the free-text interests of users.
type InterestRepository interface {
	Replace(ctx context.Context, userID uint, interests []string) error
	List(ctx context.Context, userID uint) ([]string, error)
}

type interestRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewInterestRepository returns a new InterestRepository implementation.
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db, logger: observability.NewRepoLogger("interests")}
}

// Replace deletes every interest of the user and inserts the new set in one transaction.
func (r *interestRepository) Replace(ctx context.Context, userID uint, interests []string) error {
	defer observability.TrackQuery("replace", "interests")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Interest{}).Error; err != nil {
			return err
		}
		for _, value := range interests {
			if err := tx.Create(&models.Interest{UserID: userID, Interest: value}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "replace")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]any{"user_id": userID, "count": len(interests)})
	return nil
}

// List returns interests in insertion order.
func (r *interestRepository) List(ctx context.Context, userID uint) ([]string, error) {
	var values []string
	err := readDB(r.db).WithContext(ctx).Model(&models.Interest{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("interest", &values).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return values, nil
}
