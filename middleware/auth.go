package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"threadscope/utils"
)

// BearerAuth requires an HS256 signed bearer token on every request. The
// token subject is stored in Locals("subject"). An empty secret disables
// the check.
func BearerAuth(secret string) fiber.Handler {
	if secret == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			return utils.UnauthorizedError("Missing bearer token", nil)
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.UnauthorizedError("Invalid token", err)
		}

		c.Locals("subject", claims.Subject)
		return c.Next()
	}
}

// SignToken issues an HS256 token for subject, used by the token command
func SignToken(secret, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
