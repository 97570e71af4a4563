// Package tenant carries the owning tenant of a request through contexts.
//
// Every filesystem operation is scoped to one tenant. Lookups fail closed:
// a context without a tenant is an error, never an implicit default.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// MaxIDLength bounds tenant IDs.
const MaxIDLength = 64

var (
	// ErrMissingTenant is returned when a context carries no tenant.
	ErrMissingTenant = errors.New("missing tenant")

	// ErrInvalidTenantID is returned for IDs that cannot name a tenant.
	ErrInvalidTenantID = errors.New("invalid tenant ID")
)

// ':' separates tenant and key in storage, so it is excluded here.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.@-]*$`)

// Validate checks that id can be used as a tenant.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTenantID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidTenantID, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTenantID, id)
	}
	return nil
}

type ctxKey struct{}

// WithTenant returns a context owned by id.
func WithTenant(ctx context.Context, id string) (context.Context, error) {
	if err := Validate(id); err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, ctxKey{}, id), nil
}

// FromContext returns the tenant stored by WithTenant.
func FromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", ErrMissingTenant
	}
	return id, nil
}
