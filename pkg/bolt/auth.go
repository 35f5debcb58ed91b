package bolt

import "context"

// AuthValidator validates the credentials a client presents via LOGON. A
// Server configured without one accepts every LOGON unconditionally.
type AuthValidator interface {
	Validate(ctx context.Context, credentials AuthCredentials) error
}
