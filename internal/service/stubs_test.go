package service

import (
	"context"
	"sync"

	"usersvc/internal/events"
	"usersvc/internal/models"
)

type userRepoStub struct {
	createFn         func(context.Context, *models.User) error
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	updateFieldFn    func(context.Context, *models.User, string, interface{}) error
	deleteFn         func(context.Context, *models.User) error
	searchFn         func(context.Context, string, bool, int, int) ([]models.User, error)
	searchFollowedFn func(context.Context, uint, string, int, int) ([]models.User, error)
	listFn           func(context.Context, int, int) ([]models.User, error)
	listAdminsFn     func(context.Context) ([]models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) UpdateField(ctx context.Context, user *models.User, column string, value interface{}) error {
	return s.updateFieldFn(ctx, user, column, value)
}
func (s *userRepoStub) Delete(ctx context.Context, user *models.User) error {
	return s.deleteFn(ctx, user)
}
func (s *userRepoStub) Search(ctx context.Context, q string, includeAdmins bool, offset, limit int) ([]models.User, error) {
	return s.searchFn(ctx, q, includeAdmins, offset, limit)
}
func (s *userRepoStub) SearchFollowed(ctx context.Context, followerID uint, q string, offset, limit int) ([]models.User, error) {
	return s.searchFollowedFn(ctx, followerID, q, offset, limit)
}
func (s *userRepoStub) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	return s.listFn(ctx, offset, limit)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:         func(context.Context, *models.User) error { return nil },
		getByIDFn:        func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		getByUsernameFn:  func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		updateFieldFn:    func(context.Context, *models.User, string, interface{}) error { return nil },
		deleteFn:         func(context.Context, *models.User) error { return nil },
		searchFn:         func(context.Context, string, bool, int, int) ([]models.User, error) { return nil, nil },
		searchFollowedFn: func(context.Context, uint, string, int, int) ([]models.User, error) { return nil, nil },
		listFn:           func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		listAdminsFn:     func(context.Context) ([]models.User, error) { return nil, nil },
	}
}

// userRepoWith resolves GetByEmail from a fixed set of users.
func userRepoWith(users ...*models.User) *userRepoStub {
	repo := noopUserRepo()
	byEmail := make(map[string]*models.User, len(users))
	for _, u := range users {
		byEmail[u.Email] = u
	}
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if u, ok := byEmail[email]; ok {
			cp := *u
			return &cp, nil
		}
		return nil, models.ErrUserNotFound
	}
	return repo
}

type followRepoStub struct {
	createFn         func(context.Context, uint, uint) error
	deleteFn         func(context.Context, uint, uint) error
	existsFn         func(context.Context, uint, uint) (bool, error)
	followersFn      func(context.Context, uint) ([]models.User, error)
	followingFn      func(context.Context, uint) ([]models.User, error)
	countFollowersFn func(context.Context, uint) (int64, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	allEdgesFn       func(context.Context) ([]models.FollowEdge, error)
}

func (s *followRepoStub) Create(ctx context.Context, followerID, followeeID uint) error {
	return s.createFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followeeID uint) error {
	return s.deleteFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.existsFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followersFn(ctx, userID)
}
func (s *followRepoStub) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followingFn(ctx, userID)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowersFn(ctx, userID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowingFn(ctx, userID)
}
func (s *followRepoStub) AllEdges(ctx context.Context) ([]models.FollowEdge, error) {
	return s.allEdgesFn(ctx)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		createFn:         func(context.Context, uint, uint) error { return nil },
		deleteFn:         func(context.Context, uint, uint) error { return nil },
		existsFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		followersFn:      func(context.Context, uint) ([]models.User, error) { return nil, nil },
		followingFn:      func(context.Context, uint) ([]models.User, error) { return nil, nil },
		countFollowersFn: func(context.Context, uint) (int64, error) { return 0, nil },
		countFollowingFn: func(context.Context, uint) (int64, error) { return 0, nil },
		allEdgesFn:       func(context.Context) ([]models.FollowEdge, error) { return nil, nil },
	}
}

type interestRepoStub struct {
	replaceFn func(context.Context, uint, []string) error
	listFn    func(context.Context, uint) ([]string, error)
}

func (s *interestRepoStub) Replace(ctx context.Context, userID uint, interests []string) error {
	return s.replaceFn(ctx, userID, interests)
}
func (s *interestRepoStub) List(ctx context.Context, userID uint) ([]string, error) {
	return s.listFn(ctx, userID)
}

func noopInterestRepo() *interestRepoStub {
	return &interestRepoStub{
		replaceFn: func(context.Context, uint, []string) error { return nil },
		listFn:    func(context.Context, uint) ([]string, error) { return nil, nil },
	}
}

type biometricRepoStub struct {
	createFn   func(context.Context, uint, string) error
	findUserFn func(context.Context, string) (*models.User, error)
	deleteFn   func(context.Context, uint, string) error
}

func (s *biometricRepoStub) Create(ctx context.Context, userID uint, token string) error {
	return s.createFn(ctx, userID, token)
}
func (s *biometricRepoStub) FindUser(ctx context.Context, token string) (*models.User, error) {
	return s.findUserFn(ctx, token)
}
func (s *biometricRepoStub) Delete(ctx context.Context, userID uint, token string) error {
	return s.deleteFn(ctx, userID, token)
}

func noopBiometricRepo() *biometricRepoStub {
	return &biometricRepoStub{
		createFn:   func(context.Context, uint, string) error { return nil },
		findUserFn: func(context.Context, string) (*models.User, error) { return nil, models.ErrUserNotFound },
		deleteFn:   func(context.Context, uint, string) error { return nil },
	}
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *publisherStub) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *publisherStub) Close() error { return nil }

func (p *publisherStub) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type signerStub struct {
	path string
	url  string
	err  error
}

func (s *signerStub) SignedURL(_ context.Context, storagePath string) (string, error) {
	s.path = storagePath
	return s.url, s.err
}

func newUserService(users *userRepoStub) *UserService {
	return NewUserService(users, noopInterestRepo(), noopBiometricRepo(), DefaultMaxAmount)
}
