package service

import (
	"context"
	"time"

	"usersvc/internal/events"
	"usersvc/internal/models"
	"usersvc/internal/observability"
	"usersvc/internal/repository"
	"usersvc/internal/storage"
)

// AdminService implements privileged user management.
type AdminService struct {
	users     *UserService
	userRepo  repository.UserRepository
	signer    storage.Signer
	publisher events.Publisher
}

// NewAdminService returns a new AdminService.
func NewAdminService(users *UserService, userRepo repository.UserRepository, signer storage.Signer, publisher events.Publisher) *AdminService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AdminService{
		users:     users,
		userRepo:  userRepo,
		signer:    signer,
		publisher: publisher,
	}
}

func (s *AdminService) MakeAdmin(ctx context.Context, email string) error {
	if err := s.users.ChangeAdminStatus(ctx, email, true); err != nil {
		return err
	}
	observability.LogServiceEvent(ctx, "AdminService", "admin_granted", map[string]any{"email": email})
	return nil
}

func (s *AdminService) RemoveAdmin(ctx context.Context, email string) error {
	if err := s.users.ChangeAdminStatus(ctx, email, false); err != nil {
		return err
	}
	observability.LogServiceEvent(ctx, "AdminService", "admin_revoked", map[string]any{"email": email})
	return nil
}

// SetBlocked flips the blocked flag and publishes a block metric.
func (s *AdminService) SetBlocked(ctx context.Context, adminEmail, email string, blocked bool) error {
	start := time.Now()
	if err := s.users.ChangeBlockedStatus(ctx, email, blocked); err != nil {
		return err
	}

	observability.LogServiceEvent(ctx, "AdminService", "blocked_changed", map[string]any{
		"admin":   adminEmail,
		"email":   email,
		"blocked": blocked,
	})
	_ = s.publisher.Publish(ctx, events.NewBlockMetric(adminEmail, email, start, blocked))
	return nil
}

// ListUsers pages through every user ordered by id.
func (s *AdminService) ListUsers(ctx context.Context, start, amount int) ([]models.User, error) {
	if err := checkPage(start, amount, s.users.MaxAmount()); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx, start, amount)
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}

// SearchIncludingAdmins is the substring search without hiding admins.
func (s *AdminService) SearchIncludingAdmins(ctx context.Context, query string, start, amount int) ([]models.User, error) {
	if err := checkPage(start, amount, s.users.MaxAmount()); err != nil {
		return nil, err
	}
	return s.userRepo.Search(ctx, query, true, start, amount)
}

// FindUser looks a user up by email, or by username when email is empty.
func (s *AdminService) FindUser(ctx context.Context, email, username string) (*models.User, error) {
	switch {
	case email != "":
		return s.users.GetByEmail(ctx, email)
	case username != "":
		return s.users.GetByUsername(ctx, username)
	default:
		return nil, models.NewValidationError("email or username is required")
	}
}

// ImageLink returns a short-lived download URL for a stored image.
func (s *AdminService) ImageLink(ctx context.Context, storagePath string) (string, error) {
	if storage.NormalizePath(storagePath) == "" {
		return "", models.NewValidationError("path is required")
	}
	url, err := s.signer.SignedURL(ctx, storagePath)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return url, nil
}
