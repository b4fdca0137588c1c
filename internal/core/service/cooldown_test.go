package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownLifecycle(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	cd := newCooldownTracker(clk.Now)

	assert.False(t, cd.active("u1"), "missing entry is not a cooldown")

	cd.start("u1", 3*time.Second)
	assert.True(t, cd.active("u1"))

	clk.Advance(2 * time.Second)
	assert.True(t, cd.active("u1"))

	clk.Advance(time.Second)
	assert.False(t, cd.active("u1"), "entry at its expiry is inert")
	assert.Zero(t, cd.size(), "expired entry is dropped on check")
}

func TestCooldownClear(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	cd := newCooldownTracker(clk.Now)

	cd.start("u1", time.Minute)
	cd.clear("u1")
	assert.False(t, cd.active("u1"))
}

func TestCooldownSweep(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	cd := newCooldownTracker(clk.Now)

	cd.start("u1", time.Second)
	cd.start("u2", time.Hour)
	clk.Advance(time.Minute)

	cd.sweep()
	assert.Equal(t, 1, cd.size())
	assert.False(t, cd.active("u1"))
	assert.True(t, cd.active("u2"))
}
