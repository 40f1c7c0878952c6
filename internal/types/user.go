package types

// UserCtxName is the fiber.Locals key under which the authenticated
// UserContext is stored by the auth middleware.
const UserCtxName = "user"

// UserContext carries the identity of the authenticated caller through a
// request. It is populated from access token claims and never from the
// request body.
type UserContext struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}
