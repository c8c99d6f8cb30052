package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay equalizes how long authentication failures take, so a
// caller cannot tell "unknown account" from "wrong password" by
// measuring the response.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

// WaitFrom pads out the elapsed time since startTime to at least the
// configured target on failed attempts. Successes return immediately.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success {
		return
	}

	targetDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if randomValue, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			targetDelay += time.Duration(randomValue) * time.Millisecond
		}
	}

	if elapsed := time.Since(startTime); elapsed < targetDelay {
		time.Sleep(targetDelay - elapsed)
	}
}
