package util

import (
	"english_virtual_lab/internal/model"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "rina@example.com"}
	user.ID = "5d0c7f8e-0000-4000-8000-000000000001"

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	user := &model.User{Email: "rina@example.com"}
	user.ID = "u1"

	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestViewerFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, ViewerFromContext(c).SignedIn())

	c.Set("user", &Claims{UserID: "u1", Email: "a@b.c"})
	v := ViewerFromContext(c)
	assert.True(t, v.SignedIn())
	assert.Equal(t, "u1", v.UserID)
}
