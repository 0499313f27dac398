package api_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/spillmem/api"
)

func TestStructuredErrorMatchesSentinel(t *testing.T) {
	err := api.NewError(api.ErrCodeUnspillable, "buffer is exposed or pinned").
		WithContext("pins", int64(2))

	require.ErrorIs(t, err, api.ErrUnspillable)
	require.NotErrorIs(t, err, api.ErrInvalidArgument)
	require.Contains(t, err.Error(), "pins")
	require.Equal(t, int64(2), err.Context["pins"])
}

func TestStructuredErrorWithoutSentinel(t *testing.T) {
	err := api.NewError(api.ErrCodeInternal, "bookkeeping out of sync")
	require.Equal(t, "bookkeeping out of sync", err.Error())
	require.NotErrorIs(t, err, api.ErrInvalidArgument)
}
