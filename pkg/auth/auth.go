// Package auth supplies the bearer tokens the watsonx and orchestrate
// clients attach to every request.
package auth

import (
	"context"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// TokenSource yields a bearer token. Implementations must be safe for
// concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a TokenSource for a token obtained elsewhere.
type Static string

// Token returns the static token, or an Authentication error when empty.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", wxerrors.Authentication("token", "no access token configured")
	}
	return string(s), nil
}
