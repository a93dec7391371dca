package server

import (
	"net/http"
	"testing"

	"usersvc/internal/config"
	"usersvc/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "gina@example.com", "gina")

	resp := env.request(t, http.MethodGet, "/api/get_user_by_token", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var withoutID map[string]any
	decodeBody(t, resp, &withoutID)
	assert.Equal(t, "gina@example.com", withoutID["email"])
	assert.NotContains(t, withoutID, "id")

	resp = env.request(t, http.MethodGet, "/api/user", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var withID map[string]any
	decodeBody(t, resp, &withID)
	assert.Equal(t, "gina", withID["username"])
	assert.NotZero(t, withID["id"])
}

func TestUpdateProfileFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "hank@example.com", "hank")

	tests := []struct {
		path           string
		value          any
		expectedStatus int
	}{
		{"/api/users/bio", "Hello there", http.StatusOK},
		{"/api/users/name", "Henry", http.StatusOK},
		{"/api/users/last_name", "Hill", http.StatusOK},
		{"/api/users/avatar", "avatars/hank.png", http.StatusOK},
		{"/api/users/date_of_birth", "1985-02-03", http.StatusOK},
		{"/api/users/location", "Madrid", http.StatusOK},
		{"/api/users/privacy", false, http.StatusOK},
		{"/api/users/date_of_birth", "not-a-date", http.StatusBadRequest},
		{"/api/users/privacy", "maybe", http.StatusBadRequest},
		{"/api/users/bio", 42, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := env.request(t, http.MethodPut, tt.path, map[string]any{"value": tt.value}, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	resp := env.request(t, http.MethodGet, "/api/get_user_by_token", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user map[string]any
	decodeBody(t, resp, &user)
	assert.Equal(t, "Hello there", user["bio"])
	assert.Equal(t, "Henry", user["name"])
	assert.Equal(t, "Hill", user["last_name"])
	assert.Equal(t, "avatars/hank.png", user["avatar"])
	assert.Equal(t, "1985-02-03", user["date_of_birth"])
	assert.Equal(t, "Madrid", user["location"])
	assert.Equal(t, false, user["is_public"])

	geo := env.publisher.ofType(events.TypeGeoZone)
	require.Len(t, geo, 1)
	metric, ok := geo[0].(events.GeoZoneMetric)
	require.True(t, ok)
	assert.Equal(t, "", metric.OldLocation)
	assert.Equal(t, "Madrid", metric.NewLocation)
}

func TestUpdateLocation_UnchangedDoesNotPublish(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "iris@example.com", "iris")

	resp := env.request(t, http.MethodPut, "/api/users/location", map[string]any{"value": "Lima"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.request(t, http.MethodPut, "/api/users/location", map[string]any{"value": "Lima"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, env.publisher.ofType(events.TypeGeoZone), 1)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "jack@example.com", "jack")

	resp := env.request(t, http.MethodPut, "/api/users/password", map[string]any{"value": "short"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPut, "/api/users/password", map[string]any{"value": "NewPassword456"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/login", map[string]string{
		"email": "jack@example.com", "password": "Password123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/login", map[string]string{
		"email": "jack@example.com", "password": "NewPassword456",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInterests(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "kate@example.com", "kate")

	var body struct {
		Interests []string `json:"interests"`
	}

	resp := env.request(t, http.MethodGet, "/api/users/interests", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Empty(t, body.Interests)

	resp = env.request(t, http.MethodPut, "/api/users/interests", map[string]string{"interests": "music,hiking,music"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"music", "hiking", "music"}, body.Interests)

	resp = env.request(t, http.MethodPut, "/api/users/interests", map[string]string{"interests": "chess"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/users/interests", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body.Interests = nil
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"chess"}, body.Interests)
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "searcher@example.com", "searcher")
	env.signup(t, "maria@example.com", "maria")
	env.signup(t, "mario@example.com", "mario")
	env.signup(t, "boss@example.com", "mariaboss")
	env.makeAdmin(t, "boss@example.com")

	var users []map[string]any

	resp := env.request(t, http.MethodGet, "/api/user/search/MARI", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "maria", users[0]["username"])
	assert.Equal(t, "mario", users[1]["username"])

	resp = env.request(t, http.MethodGet, "/api/user/search/mari?offset=1&ammount=1", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users = nil
	decodeBody(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "mario", users[0]["username"])

	resp = env.request(t, http.MethodGet, "/api/user/search/mari?ammount=26", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MAX_AMOUNT_EXCEEDED", errorCode(t, resp))

	resp = env.request(t, http.MethodGet, "/api/user/search/mari?offset=-1", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchUsers_InFollowers(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "fan@example.com", "fan")
	env.signup(t, "maria@example.com", "maria")
	env.signup(t, "mario@example.com", "mario")
	env.signup(t, "boss@example.com", "mariaboss")
	env.makeAdmin(t, "boss@example.com")

	for _, email := range []string{"mario@example.com", "boss@example.com"} {
		resp := env.request(t, http.MethodPost, "/api/follow/"+email, nil, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := env.request(t, http.MethodGet, "/api/user/search/mari?in_followers=true", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []map[string]any
	decodeBody(t, resp, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "mario", users[0]["username"])
	assert.Equal(t, "mariaboss", users[1]["username"])
}

func TestSearchUsers_FollowerSearchDisabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.FeatureFlags = "follower_search=off"
	})
	token := env.signup(t, "lee@example.com", "lee")

	resp := env.request(t, http.MethodGet, "/api/user/search/a?in_followers=true", nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/user/search/a", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ownerToken := env.signup(t, "owner@example.com", "owner")
	otherToken := env.signup(t, "other@example.com", "other")
	adminToken := env.signup(t, "admin@example.com", "admin")
	env.makeAdmin(t, "admin@example.com")

	resp := env.request(t, http.MethodDelete, "/api/users/owner@example.com", nil, otherToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/users/owner@example.com", nil, ownerToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/get_user_by_token", nil, ownerToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/users/other@example.com", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/users/ghost@example.com", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
