package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/seochat/pkg/utils/clock"
)

func TestClock(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := clock.With(context.Background(), clock.Fixed(now))
	gt.Equal(t, clock.Now(ctx), now)
	gt.Equal(t, clock.Since(ctx, now.Add(-time.Hour)), time.Hour)
}

func TestClockDefault(t *testing.T) {
	before := time.Now()
	got := clock.Now(context.Background())
	gt.False(t, got.Before(before))
}
