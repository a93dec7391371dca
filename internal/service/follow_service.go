package service

import (
	"context"
	"errors"

	"usersvc/internal/models"
	"usersvc/internal/observability"
	"usersvc/internal/repository"
)

// FollowService maintains the directed follow graph.
type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *FollowService {
	return &FollowService{
		userRepo:   userRepo,
		followRepo: followRepo,
	}
}

func (s *FollowService) resolvePair(ctx context.Context, a, b string) (*models.User, *models.User, error) {
	first, err := s.userRepo.GetByEmail(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.userRepo.GetByEmail(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// Follow makes followerEmail follow followeeEmail.
func (s *FollowService) Follow(ctx context.Context, followerEmail, followeeEmail string) error {
	if followerEmail == followeeEmail {
		return models.ErrUserCantFollowItself
	}

	follower, followee, err := s.resolvePair(ctx, followerEmail, followeeEmail)
	if err != nil {
		return err
	}

	if err := s.followRepo.Create(ctx, follower.ID, followee.ID); err != nil {
		var dup *repository.ErrDuplicate
		if errors.As(err, &dup) {
			return models.ErrFollowingRelationAlreadyExists
		}
		return err
	}

	observability.FollowEvents.WithLabelValues("follow").Inc()
	return nil
}

// Unfollow removes the edge if it exists. Both users must exist.
func (s *FollowService) Unfollow(ctx context.Context, followerEmail, followeeEmail string) error {
	follower, followee, err := s.resolvePair(ctx, followerEmail, followeeEmail)
	if err != nil {
		return err
	}
	if err := s.followRepo.Delete(ctx, follower.ID, followee.ID); err != nil {
		return err
	}
	observability.FollowEvents.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether a follows b.
func (s *FollowService) IsFollowing(ctx context.Context, a, b string) (bool, error) {
	first, second, err := s.resolvePair(ctx, a, b)
	if err != nil {
		return false, err
	}
	return s.followRepo.Exists(ctx, first.ID, second.ID)
}

// IsFollower reports whether b follows a.
func (s *FollowService) IsFollower(ctx context.Context, a, b string) (bool, error) {
	return s.IsFollowing(ctx, b, a)
}

func (s *FollowService) Followers(ctx context.Context, email string) ([]models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, user.ID)
}

func (s *FollowService) Following(ctx context.Context, email string) ([]models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, user.ID)
}

func (s *FollowService) FollowersCount(ctx context.Context, email string) (int64, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.followRepo.CountFollowers(ctx, user.ID)
}

func (s *FollowService) FollowingCount(ctx context.Context, email string) (int64, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.followRepo.CountFollowing(ctx, user.ID)
}

// AllEdges lists every follow relation. Callers enforce authorization.
func (s *FollowService) AllEdges(ctx context.Context) ([]models.FollowEdge, error) {
	return s.followRepo.AllEdges(ctx)
}
