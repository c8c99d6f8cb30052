package auth_test

import (
	"testing"
	"time"

	"github.com/coachdesk/gatehouse/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.WaitFrom(startTime, false)

	elapsed := time.Since(startTime)
	// At least the base delay, bounded by base + max random plus slack
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_NoDelay(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.WaitFrom(startTime, true)

	elapsed := time.Since(startTime)
	assert.Less(t, elapsed, 10*time.Millisecond)
}

func TestTimingDelay_WaitFrom_CountsElapsedTime(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs: 50,
	}

	timing := auth.NewTimingDelay(config)

	// Work that already took longer than the target adds no extra sleep
	startTime := time.Now().Add(-100 * time.Millisecond)
	before := time.Now()
	timing.WaitFrom(startTime, false)

	assert.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestTimingDelay_WaitFrom_ZeroConfig(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	startTime := time.Now()

	timing.WaitFrom(startTime, false)

	assert.Less(t, time.Since(startTime), 10*time.Millisecond)
}
