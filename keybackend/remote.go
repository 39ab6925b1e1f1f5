package keybackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sagarc03/itemgate"
)

// DefaultRemoteTimeout bounds a single validation call.
const DefaultRemoteTimeout = 5 * time.Second

const maxResponseBytes = 64 << 10

// RemoteOracle asks an HTTP validation service whether a token is valid.
//
// The request is a POST of {"token": "..."} to the configured URL. A 200
// response carrying {"valid": bool} is a verdict, as are 401 and 403
// (invalid). Anything else, including transport failures and timeouts,
// is reported as itemgate.ErrOracleUnavailable.
type RemoteOracle struct {
	url    string
	client *http.Client
}

// NewRemoteOracle creates a RemoteOracle. A non-positive timeout selects
// DefaultRemoteTimeout.
func NewRemoteOracle(url string, timeout time.Duration) (*RemoteOracle, error) {
	if url == "" {
		return nil, errors.New("new remote oracle: url cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteOracle{url: url, client: &http.Client{Timeout: timeout}}, nil
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid *bool `json:"valid"`
}

func (o *RemoteOracle) Validate(ctx context.Context, token string) (bool, error) {
	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return false, fmt.Errorf("validate token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("validate token: %w: %w", itemgate.ErrOracleUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate token: %w: %w", itemgate.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("validate token: %w: unexpected status %d", itemgate.ErrOracleUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return false, fmt.Errorf("validate token: %w: decode response: %w", itemgate.ErrOracleUnavailable, err)
	}
	if out.Valid == nil {
		return false, fmt.Errorf("validate token: %w: response has no verdict", itemgate.ErrOracleUnavailable)
	}

	return *out.Valid, nil
}
