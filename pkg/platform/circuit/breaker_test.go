package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("predict", WithFailureThreshold(3), WithCooldown(time.Minute), WithClock(clock.now))

	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.True(t, b.Allow())
	assert.Equal(t, StateChange{Opened: true}, b.RecordFailure())
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("scan", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("predict", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(clock.now))
	b.RecordFailure()

	clock.advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	t.Run("failed probe reopens for a full cooldown", func(t *testing.T) {
		assert.Equal(t, StateChange{Opened: true}, b.RecordFailure())
		assert.False(t, b.Allow())
		clock.advance(time.Minute)
		assert.True(t, b.Allow())
	})

	t.Run("successful probe closes", func(t *testing.T) {
		assert.Equal(t, StateChange{Closed: true}, b.RecordSuccess())
		assert.Equal(t, StateClosed, b.State())
		assert.Equal(t, "closed", b.State().String())
	})
}

func TestBreakerSuccessThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New("scan", WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Second), WithClock(clock.now))
	b.RecordFailure()
	clock.advance(time.Second)
	b.Allow()

	assert.Equal(t, StateChange{}, b.RecordSuccess())
	assert.Equal(t, StateChange{Closed: true}, b.RecordSuccess())
}

func TestBreakerReset(t *testing.T) {
	b := New("scan", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.True(t, b.Allow())
	assert.Equal(t, "scan", b.Name())
}
