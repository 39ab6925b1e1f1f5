package itemgate

import (
	"context"
	"fmt"
	"strings"
)

const bearerScheme = "Bearer"

// Credential is the opaque bearer token presented by a caller.
type Credential string

// CredentialChecker answers whether a credential is valid.
// *ValidationCache implements it.
type CredentialChecker interface {
	Check(ctx context.Context, credential string) (bool, error)
}

// Authorizer turns a raw authorization header into an authorized credential.
// It holds no state of its own.
type Authorizer struct {
	checker CredentialChecker
}

// NewAuthorizer creates an Authorizer backed by checker.
func NewAuthorizer(checker CredentialChecker) *Authorizer {
	return &Authorizer{checker: checker}
}

// ExtractCredential parses a raw authorization header value. A value starting
// with "Bearer" yields its second whitespace-separated field; any other value
// is the token itself. A blank header, or a bare "Bearer", returns
// ErrMissingCredential.
func ExtractCredential(header string) (Credential, error) {
	value := strings.TrimSpace(header)
	if value == "" {
		return "", ErrMissingCredential
	}

	if fields := strings.Fields(value); fields[0] == bearerScheme {
		if len(fields) < 2 {
			return "", ErrMissingCredential
		}
		return Credential(fields[1]), nil
	}

	return Credential(value), nil
}

// Authorize extracts the credential from header and checks it.
// It returns ErrMissingCredential, ErrUnauthorized, or an error wrapping
// ErrOracleUnavailable when no verdict could be obtained.
func (a *Authorizer) Authorize(ctx context.Context, header string) (Credential, error) {
	credential, err := ExtractCredential(header)
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}

	valid, err := a.checker.Check(ctx, string(credential))
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}

	if !valid {
		return "", fmt.Errorf("authorize: %w", ErrUnauthorized)
	}

	return credential, nil
}
