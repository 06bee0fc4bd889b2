package auth

import "github.com/gofiber/fiber/v2"

// HeaderName is the HTTP header carrying the API key.
const HeaderName = "X-API-Key"

// Config holds configuration for the auth middleware.
type Config struct {
	// ApiKey is the expected key. When empty, authentication is
	// disabled and all requests pass through (development mode).
	ApiKey string
}

// New returns a middleware that validates the API key on every request.
// The key is read from the X-API-Key header, with an api_key query
// parameter fallback for clients that cannot set headers.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.ApiKey == "" {
			return c.Next()
		}

		key := c.Get(HeaderName)
		if key == "" {
			key = c.Query("api_key")
		}

		if key != cfg.ApiKey {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}

		return c.Next()
	}
}
