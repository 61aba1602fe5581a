package model

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelFor(0), 1)
	assert.Equal(t, LevelFor(499), 1)
	assert.Equal(t, LevelFor(500), 2)
	assert.Equal(t, LevelFor(530), 2)
	assert.Equal(t, LevelFor(999), 2)
	assert.Equal(t, LevelFor(1000), 3)
	// Negative points never produce a level below 1.
	assert.Equal(t, LevelFor(-50), 1)
}

func TestChatIDOrderIndependent(t *testing.T) {
	assert.Equal(t, ChatID(7, 3), "3_7")
	assert.Equal(t, ChatID(3, 7), "3_7")
	assert.Equal(t, ChatID(42, 42), "42_42")

	low, high := SplitChatID("3_7")
	assert.Equal(t, low, uint64(3))
	assert.Equal(t, high, uint64(7))
}

func TestChatInvolves(t *testing.T) {
	c := Chat{ID: "3_7", UserID: 3, TargetID: 7}
	assert.Equal(t, c.Involves(3), true)
	assert.Equal(t, c.Involves(7), true)
	assert.Equal(t, c.Involves(5), false)
}

func TestValidCallTransition(t *testing.T) {
	assert.Equal(t, ValidCallTransition(CallPending, CallPreparing), true)
	assert.Equal(t, ValidCallTransition(CallPreparing, CallReady), true)
	assert.Equal(t, ValidCallTransition(CallReady, CallDone), true)

	// No skipping, no going back, no leaving done.
	assert.Equal(t, ValidCallTransition(CallPending, CallReady), false)
	assert.Equal(t, ValidCallTransition(CallPending, CallDone), false)
	assert.Equal(t, ValidCallTransition(CallPreparing, CallPending), false)
	assert.Equal(t, ValidCallTransition(CallDone, CallPending), false)
	assert.Equal(t, ValidCallTransition(CallDone, CallDone), false)
}

func TestClampCapacity(t *testing.T) {
	assert.Equal(t, ClampCapacity(-5), 0)
	assert.Equal(t, ClampCapacity(0), 0)
	assert.Equal(t, ClampCapacity(55), 55)
	assert.Equal(t, ClampCapacity(100), 100)
	assert.Equal(t, ClampCapacity(140), 100)
}
