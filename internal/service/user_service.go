// Package service holds the business rules of the users service.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"usersvc/internal/models"
	"usersvc/internal/observability"
	"usersvc/internal/repository"
	"usersvc/internal/validation"
)

// DefaultMaxAmount caps page sizes for search and listings.
const DefaultMaxAmount = 25

// UserService manages accounts, profile fields, interests and biometric tokens.
type UserService struct {
	userRepo      repository.UserRepository
	interestRepo  repository.InterestRepository
	biometricRepo repository.BiometricTokenRepository
	maxAmount     int
}

// RegisterInput carries a new account. PasswordHash must already be hashed.
type RegisterInput struct {
	Email        string
	PasswordHash string
	Username     string
	Name         string
	Surname      string
	DateOfBirth  *time.Time
	Bio          string
	Avatar       string
	Location     string
}

// SearchOptions paginates a search. InFollowers restricts results to users
// the requester follows.
type SearchOptions struct {
	Start          int
	Amount         int
	RequesterEmail string
	InFollowers    bool
}

// NewUserService returns a new UserService. A non-positive maxAmount uses DefaultMaxAmount.
func NewUserService(
	userRepo repository.UserRepository,
	interestRepo repository.InterestRepository,
	biometricRepo repository.BiometricTokenRepository,
	maxAmount int,
) *UserService {
	if maxAmount <= 0 {
		maxAmount = DefaultMaxAmount
	}
	return &UserService{
		userRepo:      userRepo,
		interestRepo:  interestRepo,
		biometricRepo: biometricRepo,
		maxAmount:     maxAmount,
	}
}

// MaxAmount reports the page size cap.
func (s *UserService) MaxAmount() int {
	return s.maxAmount
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Register")
	defer span.End()

	user := &models.User{
		Email:       in.Email,
		Username:    in.Username,
		Password:    in.PasswordHash,
		Name:        in.Name,
		Surname:     in.Surname,
		DateOfBirth: in.DateOfBirth,
		Bio:         in.Bio,
		Avatar:      in.Avatar,
		Location:    in.Location,
		Admin:       false,
		Blocked:     false,
		IsPublic:    true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		var dup *repository.ErrDuplicate
		if errors.As(err, &dup) {
			switch dup.Constraint {
			case repository.ConstraintUserEmail:
				return nil, models.ErrEmailAlreadyRegistered
			case repository.ConstraintUserUsername:
				return nil, models.ErrUsernameAlreadyRegistered
			}
			return nil, models.NewConflictError("User already exists")
		}
		span.SetError(err)
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) setField(ctx context.Context, email, column string, value interface{}) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateField(ctx, user, column, value); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword stores an already hashed password.
func (s *UserService) ChangePassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.setField(ctx, email, "password", passwordHash)
	return err
}

func (s *UserService) ChangeBio(ctx context.Context, email, bio string) error {
	_, err := s.setField(ctx, email, "bio", bio)
	return err
}

func (s *UserService) ChangeName(ctx context.Context, email, name string) error {
	_, err := s.setField(ctx, email, "name", name)
	return err
}

func (s *UserService) ChangeSurname(ctx context.Context, email, surname string) error {
	_, err := s.setField(ctx, email, "surname", surname)
	return err
}

func (s *UserService) ChangeDateOfBirth(ctx context.Context, email string, dob time.Time) error {
	_, err := s.setField(ctx, email, "date_of_birth", dob)
	return err
}

func (s *UserService) ChangeAvatar(ctx context.Context, email, avatar string) error {
	_, err := s.setField(ctx, email, "avatar", avatar)
	return err
}

// ChangeLocation updates the location and returns the previous one.
func (s *UserService) ChangeLocation(ctx context.Context, email, location string) (string, error) {
	user, err := s.setField(ctx, email, "location", location)
	if err != nil {
		return "", err
	}
	return user.Location, nil
}

func (s *UserService) ChangeBlockedStatus(ctx context.Context, email string, blocked bool) error {
	_, err := s.setField(ctx, email, "blocked", blocked)
	return err
}

// ChangePrivacy sets whether the profile is public.
func (s *UserService) ChangePrivacy(ctx context.Context, email string, isPublic bool) error {
	_, err := s.setField(ctx, email, "is_public", isPublic)
	return err
}

func (s *UserService) ChangeAdminStatus(ctx context.Context, email string, admin bool) error {
	_, err := s.setField(ctx, email, "admin", admin)
	return err
}

// SetInterests replaces the user's interests with the comma-separated list.
func (s *UserService) SetInterests(ctx context.Context, email, csv string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.interestRepo.Replace(ctx, user.ID, validation.ParseInterests(csv))
}

func (s *UserService) GetInterests(ctx context.Context, email string) ([]string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	interests, err := s.interestRepo.List(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if interests == nil {
		interests = []string{}
	}
	return interests, nil
}

func (s *UserService) Delete(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, user); err != nil {
		return err
	}
	observability.LogServiceEvent(ctx, "UserService", "user_deleted", map[string]any{"user_id": user.ID})
	return nil
}

// Search matches query against email, username, name and surname. The default
// mode is a substring match that hides admins; InFollowers is a prefix match
// over the requester's followees that keeps admins.
func (s *UserService) Search(ctx context.Context, query string, opts SearchOptions) ([]models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Search")
	defer span.End()

	if err := checkPage(opts.Start, opts.Amount, s.maxAmount); err != nil {
		return nil, err
	}

	if !opts.InFollowers {
		return s.userRepo.Search(ctx, query, false, opts.Start, opts.Amount)
	}

	requester, err := s.userRepo.GetByEmail(ctx, opts.RequesterEmail)
	if err != nil {
		return nil, err
	}
	return s.userRepo.SearchFollowed(ctx, requester.ID, query, opts.Start, opts.Amount)
}

func (s *UserService) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return user.Admin, nil
}

func (s *UserService) AddBiometricToken(ctx context.Context, email, token string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.biometricRepo.Create(ctx, user.ID, token); err != nil {
		var dup *repository.ErrDuplicate
		if errors.As(err, &dup) {
			return models.ErrUserAlreadyHasBiometricToken
		}
		return err
	}
	return nil
}

// VerifyBiometricToken returns the owner of the (whitespace-trimmed) token.
func (s *UserService) VerifyBiometricToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrUserNotFound
	}
	return s.biometricRepo.FindUser(ctx, token)
}

func (s *UserService) RemoveBiometricToken(ctx context.Context, userID uint, token string) error {
	return s.biometricRepo.Delete(ctx, userID, strings.TrimSpace(token))
}

func checkPage(start, amount, max int) error {
	if amount > max {
		return models.NewMaxAmountExceededError(max)
	}
	if start < 0 || amount < 0 {
		return models.NewValidationError("start and amount must not be negative")
	}
	return nil
}
