package authjwt

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/types"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// Tokens verifies the presented access credential.
	Tokens *tokens.Service
	// The context key to store the UserContext. Defaults to types.UserCtxName.
	UserCtxName string
}

// New creates a middleware that requires a valid access credential. A
// missing, malformed, expired or wrong-kind token yields 401.
func New(cfg Config) fiber.Handler {
	userCtxName := cfg.UserCtxName
	if userCtxName == "" {
		userCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Missing or invalid JWT",
			})
		}

		claims, err := cfg.Tokens.VerifyAccess(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Invalid token",
			})
		}

		c.Locals(userCtxName, types.UserContext{
			UserID: claims.UserID,
			Name:   claims.Name,
		})
		return c.Next()
	}
}

// Optional creates a middleware that populates the UserContext when a valid
// access credential is present and passes the request through anonymously
// otherwise. Handlers behind it branch on the Locals value.
func Optional(cfg Config) fiber.Handler {
	userCtxName := cfg.UserCtxName
	if userCtxName == "" {
		userCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString != "" {
			if claims, err := cfg.Tokens.VerifyAccess(tokenString); err == nil {
				c.Locals(userCtxName, types.UserContext{
					UserID: claims.UserID,
					Name:   claims.Name,
				})
			}
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if authHeader == "" || !strings.HasPrefix(authHeader, types.BearerPrefix) {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
