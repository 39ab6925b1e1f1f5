// Package keybackend provides CredentialOracle implementations: a static
// token set for development and tests, and a client for a remote
// validation service.
package keybackend

import (
	"context"
)

// MapOracle accepts exactly the tokens it was built with.
type MapOracle struct {
	tokens map[string]struct{}
}

// NewMapOracle creates a MapOracle accepting tokens.
func NewMapOracle(tokens []string) *MapOracle {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return &MapOracle{tokens: set}
}

// Validate reports whether token is in the set.
func (o *MapOracle) Validate(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := o.tokens[token]
	return ok, nil
}

// Len returns the number of accepted tokens.
func (o *MapOracle) Len() int {
	return len(o.tokens)
}
