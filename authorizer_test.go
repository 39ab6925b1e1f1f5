package itemgate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyChecker struct {
	mock.Mock
}

func (s *SpyChecker) Check(ctx context.Context, credential string) (bool, error) {
	args := s.Called(ctx, credential)
	return args.Bool(0), args.Error(1)
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    itemgate.Credential
		wantErr bool
	}{
		{name: "bearer", header: "Bearer tok", want: "tok"},
		{name: "bearer extra spaces", header: "Bearer    tok  ", want: "tok"},
		{name: "bearer extra fields", header: "Bearer tok trailing", want: "tok"},
		{name: "bare token", header: "tok", want: "tok"},
		{name: "lower case scheme is a bare token", header: "bearer tok", want: "bearer tok"},
		{name: "prefix without separator", header: "Bearertok", want: "Bearertok"},
		{name: "prefix without separator keeps whole value", header: "Bearertok extra", want: "Bearertok extra"},
		{name: "bare scheme", header: "Bearer", wantErr: true},
		{name: "empty", header: "", wantErr: true},
		{name: "blank", header: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := itemgate.ExtractCredential(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, itemgate.ErrMissingCredential)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizer_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized", func(t *testing.T) {
		checker := new(SpyChecker)
		checker.On("Check", ctx, "tok").Return(true, nil)

		cred, err := itemgate.NewAuthorizer(checker).Authorize(ctx, "Bearer tok")

		require.NoError(t, err)
		assert.Equal(t, itemgate.Credential("tok"), cred)
	})

	t.Run("unauthorized", func(t *testing.T) {
		checker := new(SpyChecker)
		checker.On("Check", ctx, "bad").Return(false, nil)

		_, err := itemgate.NewAuthorizer(checker).Authorize(ctx, "bad")

		assert.ErrorIs(t, err, itemgate.ErrUnauthorized)
	})

	t.Run("missing credential never reaches checker", func(t *testing.T) {
		checker := new(SpyChecker)

		_, err := itemgate.NewAuthorizer(checker).Authorize(ctx, "")

		assert.ErrorIs(t, err, itemgate.ErrMissingCredential)
		checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
	})

	t.Run("oracle failure is distinct from unauthorized", func(t *testing.T) {
		checker := new(SpyChecker)
		checker.On("Check", ctx, "tok").Return(false, errors.Join(itemgate.ErrOracleUnavailable, errors.New("timeout")))

		_, err := itemgate.NewAuthorizer(checker).Authorize(ctx, "Bearer tok")

		assert.ErrorIs(t, err, itemgate.ErrOracleUnavailable)
		assert.NotErrorIs(t, err, itemgate.ErrUnauthorized)
	})
}
