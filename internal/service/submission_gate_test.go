package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateAllowsUnderLimit(t *testing.T) {
	gate := NewSubmissionGate(3, time.Minute, 5*time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := gate.Allow("player_1")
		assert.True(t, ok, "attempt %d", i+1)
	}
}

func TestGateBlocksOverLimit(t *testing.T) {
	gate := NewSubmissionGate(3, time.Minute, 5*time.Minute)

	for i := 0; i < 3; i++ {
		gate.Allow("player_1")
	}
	ok, retryIn := gate.Allow("player_1")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, retryIn)

	// Still blocked on the next attempt, with the remaining time reported.
	ok, retryIn = gate.Allow("player_1")
	assert.False(t, ok)
	assert.True(t, retryIn > 0 && retryIn <= 5*time.Minute)
}

func TestGateTracksUsernamesSeparately(t *testing.T) {
	gate := NewSubmissionGate(1, time.Minute, 5*time.Minute)

	ok, _ := gate.Allow("player_1")
	assert.True(t, ok)
	ok, _ = gate.Allow("player_1")
	assert.False(t, ok)

	ok, _ = gate.Allow("player_2")
	assert.True(t, ok)
}

func TestGateNormalizesUsernames(t *testing.T) {
	gate := NewSubmissionGate(1, time.Minute, 5*time.Minute)

	ok, _ := gate.Allow("Player_1")
	assert.True(t, ok)
	ok, _ = gate.Allow("  player_1 ")
	assert.False(t, ok)
}

func TestGateUnblocksAfterBlockWindow(t *testing.T) {
	gate := NewSubmissionGate(1, time.Minute, 5*time.Minute)
	current := time.Now()
	gate.now = func() time.Time { return current }

	gate.Allow("player_1")
	ok, _ := gate.Allow("player_1")
	assert.False(t, ok)

	current = current.Add(5*time.Minute + time.Second)
	ok, _ = gate.Allow("player_1")
	assert.True(t, ok)
}

func TestGateWindowSlides(t *testing.T) {
	gate := NewSubmissionGate(2, time.Minute, 5*time.Minute)
	current := time.Now()
	gate.now = func() time.Time { return current }

	gate.Allow("player_1")
	current = current.Add(61 * time.Second)
	gate.Allow("player_1")
	current = current.Add(time.Second)

	// The first attempt aged out of the window, so a third one fits.
	ok, _ := gate.Allow("player_1")
	assert.True(t, ok)
}
