package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"usersvc/internal/auth"
	"usersvc/internal/cache"
	"usersvc/internal/events"
	"usersvc/internal/models"
	"usersvc/internal/observability"
	"usersvc/internal/validation"
)

// AuthService handles registration, login, and session revocation.
type AuthService struct {
	users     *UserService
	tokens    *auth.TokenIssuer
	publisher events.Publisher
}

// RegisterRequest is the sign-up payload. DateOfBirth is optional.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Surname     string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Bio         string `json:"bio"`
	Avatar      string `json:"avatar"`
	Location    string `json:"location"`
}

// NewAuthService returns a new AuthService.
func NewAuthService(users *UserService, tokens *auth.TokenIssuer, publisher events.Publisher) *AuthService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AuthService{users: users, tokens: tokens, publisher: publisher}
}

// Register validates and creates an account, then issues a session token.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (string, *models.User, error) {
	start := time.Now()
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || req.Username == "" || req.Password == "" {
		return "", nil, models.NewValidationError("Email, username, and password are required")
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return "", nil, models.NewValidationError(err.Error())
	}

	var dob *time.Time
	if strings.TrimSpace(req.DateOfBirth) != "" {
		parsed, err := validation.ParseDateOfBirth(req.DateOfBirth)
		if err != nil {
			return "", nil, models.NewValidationError(err.Error())
		}
		dob = &parsed
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}

	user, err := s.users.Register(ctx, RegisterInput{
		Email:        req.Email,
		PasswordHash: hash,
		Username:     req.Username,
		Name:         req.Name,
		Surname:      req.Surname,
		DateOfBirth:  dob,
		Bio:          req.Bio,
		Avatar:       req.Avatar,
		Location:     req.Location,
	})
	if err != nil {
		observability.Registrations.WithLabelValues("rejected").Inc()
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}

	observability.Registrations.WithLabelValues("created").Inc()
	_ = s.publisher.Publish(ctx, events.NewRegistrationMetric(user.Email, start))
	return token, user, nil
}

// Login checks email and password. Every outcome publishes a login metric.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	start := time.Now()
	token, user, err := s.login(ctx, email, password)
	s.recordLogin(ctx, email, start, err == nil, events.LoginEntityEmail)
	return token, user, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user.Blocked {
		return "", nil, models.ErrUserBlocked
	}
	if err := auth.VerifyPassword(user.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", nil, models.ErrPasswordDoesntMatch
		}
		return "", nil, models.NewInternalError(err)
	}
	return s.issue(user)
}

// LoginWithBiometrics logs in the owner of a biometric token.
func (s *AuthService) LoginWithBiometrics(ctx context.Context, biometricToken string) (string, *models.User, error) {
	start := time.Now()
	user, err := s.users.VerifyBiometricToken(ctx, biometricToken)
	if err != nil {
		s.recordLogin(ctx, "", start, false, events.LoginEntityBiometrics)
		return "", nil, err
	}
	if user.Blocked {
		s.recordLogin(ctx, user.Email, start, false, events.LoginEntityBiometrics)
		return "", nil, models.ErrUserBlocked
	}

	email := user.Email
	token, user, err := s.issue(user)
	s.recordLogin(ctx, email, start, err == nil, events.LoginEntityBiometrics)
	return token, user, err
}

func (s *AuthService) issue(user *models.User) (string, *models.User, error) {
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, user, nil
}

func (s *AuthService) recordLogin(ctx context.Context, email string, start time.Time, ok bool, entity string) {
	result := "success"
	if !ok {
		result = "failure"
	}
	observability.LoginAttempts.WithLabelValues(entity, result).Inc()
	_ = s.publisher.Publish(ctx, events.NewLoginMetric(email, start, ok, entity))
}

// NewBiometricToken generates a fresh device token.
func (s *AuthService) NewBiometricToken() string {
	return auth.NewBiometricToken()
}

// ChangePassword validates and hashes a new password for the user.
func (s *AuthService) ChangePassword(ctx context.Context, email, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.ChangePassword(ctx, email, hash)
}

// ParseToken validates a session token and rejects revoked ones.
func (s *AuthService) ParseToken(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Claims{}, models.NewUnauthorizedError("Invalid or expired token")
	}
	if claims.ID == "" {
		return claims, nil
	}

	client := cache.GetClient()
	if client == nil {
		return claims, nil
	}
	revoked, err := client.Exists(ctx, cache.BlacklistKey(claims.ID)).Result()
	if err != nil {
		observability.LogAsyncOperationError(ctx, "token_blacklist_check", err, nil)
		return claims, nil
	}
	if revoked > 0 {
		return auth.Claims{}, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims auth.Claims) error {
	if claims.ID == "" {
		return models.NewValidationError("Token has no id")
	}
	client := cache.GetClient()
	if client == nil {
		return models.NewInternalError(errors.New("token revocation unavailable"))
	}
	ttl := claims.TTL()
	if ttl <= 0 {
		return nil
	}
	if err := client.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
