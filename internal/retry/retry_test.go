package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelays(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want []time.Duration
	}{
		{name: "unset", env: "", want: defaultDelays},
		{name: "custom", env: "1, 20,300", want: []time.Duration{time.Millisecond, 20 * time.Millisecond, 300 * time.Millisecond}},
		{name: "invalid falls back", env: "1,soon", want: defaultDelays},
		{name: "negative falls back", env: "-5", want: defaultDelays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DelaysEnvVar, tt.env)

			assert.Equal(t, tt.want, Delays())
		})
	}
}

func TestDo(t *testing.T) {
	t.Setenv(DelaysEnvVar, "0,0")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := Do(t.Context(), func(ctx context.Context) (string, error) {
			calls++
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			if calls < 3 {
				return "", errors.New("transient")
			}

			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up with the last error", func(t *testing.T) {
		calls := 0
		_, err := Do(t.Context(), func(context.Context) (int, error) {
			calls++
			return 0, errors.New("still failing")
		})
		require.EqualError(t, err, "still failing")
		assert.Equal(t, 3, calls)
	})

	t.Run("unrecoverable stops immediately", func(t *testing.T) {
		calls := 0
		_, err := Do(t.Context(), func(context.Context) (int, error) {
			calls++
			return 0, Unrecoverable(errors.New("bad request"))
		})
		require.ErrorContains(t, err, "bad request")
		assert.Equal(t, 1, calls)
	})
}
