package utils

import (
	"testing"

	"tapcash/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestGetUserClaims(t *testing.T) {
	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(c)

	_, err := GetUserClaims(c)
	assert.Error(t, err)

	c.Locals("claims", "not-claims")
	_, err = GetUserClaims(c)
	assert.Error(t, err)

	c.Locals("claims", &models.UserClaims{UserID: 7, Role: models.RoleUser})
	claims, err := GetUserClaims(c)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
}
