package repository

import (
	"context"

	"usersvc/internal/models"
	"usersvc/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence operations for the follow graph.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followeeID uint) error
	Delete(ctx context.Context, followerID, followeeID uint) error
	Exists(ctx context.Context, followerID, followeeID uint) (bool, error)
	Followers(ctx context.Context, userID uint) ([]models.User, error)
	Following(ctx context.Context, userID uint) ([]models.User, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	AllEdges(ctx context.Context) ([]models.FollowEdge, error)
}

type followRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, logger: observability.NewRepoLogger("follows")}
}

func (r *followRepository) Create(ctx context.Context, followerID, followeeID uint) error {
	defer observability.TrackQuery("create", "follows")()

	follow := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&follow).Error; err != nil {
		if dup := asDuplicate(err); dup != nil {
			return dup
		}
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]any{"follower_id": followerID, "followee_id": followeeID})
	return nil
}

// Delete removes the edge if present.
func (r *followRepository) Delete(ctx context.Context, followerID, followeeID uint) error {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	r.logger.LogDelete(ctx, map[string]any{
		"follower_id": followerID,
		"followee_id": followeeID,
		"rows":        res.RowsAffected,
	})
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Followers lists users following userID, oldest edge first.
func (r *followRepository) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.follower_id = users.id", "follows.followee_id = ?", userID)
}

// Following lists users userID follows, oldest edge first.
func (r *followRepository) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.followee_id = users.id", "follows.follower_id = ?", userID)
}

func (r *followRepository) listUsers(ctx context.Context, on, where string, userID uint) ([]models.User, error) {
	defer observability.TrackQuery("list", "follows")()

	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Select("users.*").
		Joins("JOIN follows ON "+on).
		Where(where, userID).
		Order("follows.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "followee_id = ?", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "follower_id = ?", userID)
}

func (r *followRepository) count(ctx context.Context, where string, userID uint) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).Where(where, userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *followRepository) AllEdges(ctx context.Context) ([]models.FollowEdge, error) {
	var edges []models.FollowEdge
	err := readDB(r.db).WithContext(ctx).
		Table("follows").
		Select("follows.follower_id, fr.email AS follower_email, follows.followee_id, fe.email AS followee_email, follows.created_at").
		Joins("JOIN users fr ON fr.id = follows.follower_id").
		Joins("JOIN users fe ON fe.id = follows.followee_id").
		Order("follows.id ASC").
		Scan(&edges).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}
