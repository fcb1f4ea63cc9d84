package util

import (
	"learnsphere_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@example.com", Role: model.Instructor}
	user.ID = 42

	token, err := GenerateJWT(user, "secret-one", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret-one")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Instructor, claims.Role)

	_, err = ParseJWT(token, "secret-two")
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWT(&model.User{Role: model.Learner}, "s", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(token, "s")
	assert.Error(t, err)
}
