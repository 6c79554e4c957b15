// Package retry runs calls to remote collaborators with incremental backoff.
package retry

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cast"
)

// DelaysEnvVar overrides the default delays with a comma separated list of milliseconds.
const DelaysEnvVar = "TIMELOCK_VIEWER_RETRY_DELAYS"

var (
	defaultDelays   = []time.Duration{500 * time.Millisecond, 2 * time.Second, 8 * time.Second}
	attemptTimeout  = 30 * time.Second
	defaultMinDelay = 500 * time.Millisecond
)

// Callback is a single attempt. It is given a context bounded by the attempt timeout.
type Callback[T any] func(ctx context.Context) (T, error)

// Do calls callback until it succeeds, returns an error wrapped with Unrecoverable, ctx is
// done or the delays are exhausted. The last error is returned.
func Do[T any](ctx context.Context, callback Callback[T], opts ...retry.Option) (T, error) {
	var (
		value T
		err   error
	)

	err = retry.Do(func() error {
		actx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		value, err = callback(actx)

		return err
	}, append(Options(ctx, Delays()), opts...)...)

	return value, err
}

// Unrecoverable marks err as not worth retrying.
func Unrecoverable(err error) error {
	return retry.Unrecoverable(err)
}

// Options returns the retry options for an incremental delay schedule: one attempt more
// than there are delays.
func Options(ctx context.Context, delays []time.Duration) []retry.Option {
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}

	return []retry.Option{
		retry.Context(ctx),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return delays[min(int(n), len(delays)-1)]
		}),
		retry.Delay(defaultMinDelay),
		retry.Attempts(uint(len(delays) + 1)),
		retry.LastErrorOnly(true),
	}
}

// Delays returns the delay schedule, read from DelaysEnvVar when it holds a valid list.
func Delays() []time.Duration {
	env := strings.TrimSpace(os.Getenv(DelaysEnvVar))
	if env == "" {
		return defaultDelays
	}

	delays := make([]time.Duration, 0)
	for _, d := range strings.Split(env, ",") {
		ms, err := cast.ToInt64E(strings.TrimSpace(d))
		if err != nil || ms < 0 {
			return defaultDelays
		}
		delays = append(delays, time.Duration(ms)*time.Millisecond)
	}

	return delays
}
