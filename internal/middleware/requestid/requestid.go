package requestid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// Header is the inbound/outbound correlation header.
const Header = "X-Request-ID"

const localsKey = "request_id"

// New tags every request with a correlation id, minting one when the
// client did not send its own, and echoes it on the response.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		c.Locals(localsKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}

// FromCtx returns the request's correlation id, or "" outside the
// middleware.
func FromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(localsKey).(string)
	return id
}
