package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"usersvc/internal/cache"
	"usersvc/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateDuplicates(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	createUser(t, repo, "ana@example.com", "ana")

	tests := []struct {
		name       string
		email      string
		username   string
		constraint string
	}{
		{"duplicate email", "ana@example.com", "other", ConstraintUserEmail},
		{"duplicate username", "other@example.com", "ana", ConstraintUserUsername},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, &models.User{Email: tt.email, Username: tt.username, Password: "x"})
			var dup *ErrDuplicate
			require.True(t, errors.As(err, &dup), "got %v", err)
			assert.Equal(t, tt.constraint, dup.Constraint)
		})
	}
}

func TestUserRepository_CreatePostgresConstraintName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_username", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "a@example.com", Username: "a", Password: "x"})
	var dup *ErrDuplicate
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, ConstraintUserUsername, dup.Constraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Lookups(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	created := createUser(t, repo, "ana@example.com", "ana")

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "hash-ana", byEmail.Password)
	assert.True(t, byEmail.IsPublic)
	assert.False(t, byEmail.Admin)

	byName, err := repo.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "ANA@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestUserRepository_GetByEmailCachedKeepsPassword(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		cache.SetClient(nil)
		mr.Close()
	})

	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	u := createUser(t, repo, "bob@example.com", "bob")

	_, err = repo.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserEmailKey("bob@example.com")))

	cached, err := repo.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-bob", cached.Password)

	require.NoError(t, repo.UpdateField(ctx, u, "bio", "hello"))
	assert.False(t, mr.Exists(cache.UserEmailKey("bob@example.com")))

	fresh, err := repo.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh.Bio)
}

func TestUserRepository_UpdateField(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	u := createUser(t, repo, "ana@example.com", "ana")

	require.NoError(t, repo.UpdateField(ctx, u, "is_public", false))
	require.NoError(t, repo.UpdateField(ctx, u, "location", "Madrid"))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
	assert.Equal(t, "Madrid", got.Location)
}

func TestUserRepository_UpdateFieldSwallowsUniqueViolation(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	createUser(t, repo, "ana@example.com", "ana")
	bob := createUser(t, repo, "bob@example.com", "bob")

	require.NoError(t, repo.UpdateField(ctx, bob, "username", "ana"))

	got, err := repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
}

func TestUserRepository_Search(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	createUser(t, repo, "maria@example.com", "maria")
	createUser(t, repo, "mario@example.com", "mario")
	createUser(t, repo, "root@example.com", "admaria", func(u *models.User) { u.Admin = true })
	createUser(t, repo, "zed@example.com", "zed", func(u *models.User) { u.Surname = "Marin" })

	users, err := repo.Search(ctx, "MAR", false, 0, 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"maria", "mario", "zed"}, usernames(users))

	users, err = repo.Search(ctx, "mar", true, 0, 25)
	require.NoError(t, err)
	assert.Len(t, users, 4)

	users, err = repo.Search(ctx, "mar", false, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mario"}, usernames(users))

	users, err = repo.Search(ctx, "nothing-matches", false, 0, 25)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepository_SearchFollowed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	me := createUser(t, repo, "me@example.com", "me")
	carla := createUser(t, repo, "carla@example.com", "carla")
	oscar := createUser(t, repo, "oscar@example.com", "oscar", func(u *models.User) { u.Name = "Carlos" })
	createUser(t, repo, "car@example.com", "carmen")
	admin := createUser(t, repo, "admin@example.com", "caradmin", func(u *models.User) { u.Admin = true })

	require.NoError(t, follows.Create(ctx, me.ID, oscar.ID))
	require.NoError(t, follows.Create(ctx, me.ID, carla.ID))
	require.NoError(t, follows.Create(ctx, me.ID, admin.ID))

	users, err := repo.SearchFollowed(ctx, me.ID, "CAR", 0, 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"oscar", "carla", "caradmin"}, usernames(users))

	users, err = repo.SearchFollowed(ctx, me.ID, "arla", 0, 25)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepository_ListAndAdmins(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	createUser(t, repo, "a@example.com", "a")
	createUser(t, repo, "b@example.com", "b", func(u *models.User) { u.Admin = true })
	createUser(t, repo, "c@example.com", "c")

	users, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, usernames(users))

	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, usernames(admins))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	follows := NewFollowRepository(db)
	interests := NewInterestRepository(db)
	tokens := NewBiometricTokenRepository(db)
	ctx := context.Background()

	ana := createUser(t, repo, "ana@example.com", "ana")
	bob := createUser(t, repo, "bob@example.com", "bob")
	require.NoError(t, follows.Create(ctx, ana.ID, bob.ID))
	require.NoError(t, follows.Create(ctx, bob.ID, ana.ID))
	require.NoError(t, interests.Replace(ctx, ana.ID, []string{"Music"}))
	require.NoError(t, tokens.Create(ctx, ana.ID, "tok-1"))

	require.NoError(t, repo.Delete(ctx, ana))

	_, err := repo.GetByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Interest{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.BiometricToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func usernames(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}
