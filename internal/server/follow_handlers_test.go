package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowFlow(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signup(t, "alice@example.com", "alice")
	bobToken := env.signup(t, "bob@example.com", "bob")
	env.signup(t, "carl@example.com", "carl")

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedCode   string
	}{
		{"Follow", "bob@example.com", http.StatusCreated, ""},
		{"Follow Second", "carl@example.com", http.StatusCreated, ""},
		{"Duplicate", "bob@example.com", http.StatusBadRequest, "FOLLOWING_RELATION_ALREADY_EXISTS"},
		{"Self", "alice@example.com", http.StatusBadRequest, "USER_CANT_FOLLOW_ITSELF"},
		{"Unknown", "ghost@example.com", http.StatusNotFound, "USER_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/follow/"+tt.target, nil, aliceToken)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, resp))
			}
		})
	}

	var flag map[string]bool
	resp := env.request(t, http.MethodGet, "/api/is_following/bob@example.com", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &flag)
	assert.True(t, flag["is_following"])

	resp = env.request(t, http.MethodGet, "/api/is_follower/bob@example.com", nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &flag)
	assert.False(t, flag["is_follower"])

	resp = env.request(t, http.MethodGet, "/api/is_follower/alice@example.com", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &flag)
	assert.True(t, flag["is_follower"])

	var count map[string]int64
	resp = env.request(t, http.MethodGet, "/api/following/alice@example.com/count", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &count)
	assert.Equal(t, int64(2), count["count"])

	resp = env.request(t, http.MethodGet, "/api/follow/bob@example.com/count", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &count)
	assert.Equal(t, int64(1), count["count"])

	var users []map[string]any
	resp = env.request(t, http.MethodGet, "/api/following/alice@example.com", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "bob@example.com", users[0]["email"])
	assert.Equal(t, "carl@example.com", users[1]["email"])

	users = nil
	resp = env.request(t, http.MethodGet, "/api/followers/bob@example.com", nil, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@example.com", users[0]["email"])

	resp = env.request(t, http.MethodGet, "/api/followers/ghost@example.com", nil, bobToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnfollow(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "dora@example.com", "dora")
	env.signup(t, "eve@example.com", "eve")

	resp := env.request(t, http.MethodPost, "/api/follow/eve@example.com", nil, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/unfollow?email=eve@example.com", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Unfollowing again is a no-op.
	resp = env.request(t, http.MethodDelete, "/api/unfollow?email=eve@example.com", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var flag map[string]bool
	resp = env.request(t, http.MethodGet, "/api/is_following/eve@example.com", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &flag)
	assert.False(t, flag["is_following"])

	resp = env.request(t, http.MethodDelete, "/api/unfollow", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/unfollow?email=ghost@example.com", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
