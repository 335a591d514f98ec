package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FirstSuccessWins(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	v, name, err := resolve(context.Background(), zerolog.Nop(),
		tier[int]{name: "remote", fetch: func(context.Context) (int, error) { calls++; return 0, boom }},
		tier[int]{name: "local", fetch: func(context.Context) (int, error) { calls++; return 2, nil }},
		tier[int]{name: "never", fetch: func(context.Context) (int, error) { calls++; return 3, nil }},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "local", name)
	assert.Equal(t, 2, calls)
}

func TestResolve_AllFail(t *testing.T) {
	boom := errors.New("boom")

	v, name, err := resolve(context.Background(), zerolog.Nop(),
		tier[string]{name: "a", fetch: func(context.Context) (string, error) { return "x", boom }},
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", v)
	assert.Equal(t, "", name)
}
