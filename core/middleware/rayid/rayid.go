package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the HTTP header carrying the ray id.
const HeaderName = "X-Ray-Id"

// New returns a middleware that assigns a unique ray id to every request.
// An incoming X-Ray-Id header is honored so upstream proxies and the
// collection pipeline can correlate their own traces with ours; otherwise
// a fresh UUID is generated. The id is stored in locals ("ray_id") for
// logger.WithRayID and echoed back on the response.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Locals("ray_id", rid)
		c.Set(HeaderName, rid)

		return c.Next()
	}
}
