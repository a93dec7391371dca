package service

import (
	"context"
	"errors"
	"testing"

	"usersvc/internal/events"
	"usersvc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminFixture(repo *userRepoStub, signer *signerStub, pub *publisherStub) *AdminService {
	return NewAdminService(newUserService(repo), repo, signer, pub)
}

func TestAdminServiceAdminFlags(t *testing.T) {
	repo := userRepoWith(&models.User{ID: 1, Email: "ana@example.com"})
	var values []interface{}
	repo.updateFieldFn = func(_ context.Context, _ *models.User, column string, value interface{}) error {
		assert.Equal(t, "admin", column)
		values = append(values, value)
		return nil
	}
	svc := adminFixture(repo, &signerStub{}, &publisherStub{})
	ctx := context.Background()

	require.NoError(t, svc.MakeAdmin(ctx, "ana@example.com"))
	require.NoError(t, svc.RemoveAdmin(ctx, "ana@example.com"))
	assert.Equal(t, []interface{}{true, false}, values)
	assert.ErrorIs(t, svc.MakeAdmin(ctx, "ghost@example.com"), models.ErrUserNotFound)
}

func TestAdminServiceSetBlockedPublishesMetric(t *testing.T) {
	repo := userRepoWith(&models.User{ID: 1, Email: "ana@example.com"})
	pub := &publisherStub{}
	svc := adminFixture(repo, &signerStub{}, pub)

	require.NoError(t, svc.SetBlocked(context.Background(), "root@example.com", "ana@example.com", true))

	metric, ok := pub.last().(events.BlockMetric)
	require.True(t, ok, "expected a block metric, got %#v", pub.last())
	assert.Equal(t, "root@example.com", metric.AdminEmail)
	assert.Equal(t, "ana@example.com", metric.UserEmail)
	assert.True(t, metric.Blocked)
	assert.Equal(t, events.TypeBlock, metric.EventType())

	assert.ErrorIs(t, svc.SetBlocked(context.Background(), "root@example.com", "ghost@example.com", true), models.ErrUserNotFound)
	assert.Len(t, pub.events, 1)
}

func TestAdminServiceListAndSearchAreCapped(t *testing.T) {
	repo := noopUserRepo()
	repo.listFn = func(_ context.Context, offset, limit int) ([]models.User, error) {
		return make([]models.User, limit), nil
	}
	repo.searchFn = func(_ context.Context, _ string, includeAdmins bool, _, limit int) ([]models.User, error) {
		assert.True(t, includeAdmins)
		return make([]models.User, limit), nil
	}
	svc := adminFixture(repo, &signerStub{}, &publisherStub{})
	ctx := context.Background()

	users, err := svc.ListUsers(ctx, 0, 25)
	require.NoError(t, err)
	assert.Len(t, users, 25)
	_, err = svc.ListUsers(ctx, 0, 26)
	assert.ErrorIs(t, err, models.ErrMaxAmountExceeded)

	users, err = svc.SearchIncludingAdmins(ctx, "a", 0, 3)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	_, err = svc.SearchIncludingAdmins(ctx, "a", 0, 100)
	assert.ErrorIs(t, err, models.ErrMaxAmountExceeded)
}

func TestAdminServiceFindUser(t *testing.T) {
	repo := userRepoWith(&models.User{ID: 1, Email: "ana@example.com", Username: "ana"})
	repo.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		if username == "ana" {
			return &models.User{ID: 1, Username: "ana"}, nil
		}
		return nil, models.ErrUserNotFound
	}
	svc := adminFixture(repo, &signerStub{}, &publisherStub{})
	ctx := context.Background()

	u, err := svc.FindUser(ctx, "ana@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	u, err = svc.FindUser(ctx, "", "ana")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	_, err = svc.FindUser(ctx, "", "ghost")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = svc.FindUser(ctx, "", "")
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation app error, got %#v", err)
	}
}

func TestAdminServiceImageLink(t *testing.T) {
	signer := &signerStub{url: "https://s3.local/signed"}
	svc := adminFixture(noopUserRepo(), signer, &publisherStub{})

	url, err := svc.ImageLink(context.Background(), "avatars%2Fana%40example.com.png")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/signed", url)
	assert.Equal(t, "avatars%2Fana%40example.com.png", signer.path)

	_, err = svc.ImageLink(context.Background(), "")
	assert.Error(t, err)

	signer.err = errors.New("boom")
	_, err = svc.ImageLink(context.Background(), "a.png")
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
}
