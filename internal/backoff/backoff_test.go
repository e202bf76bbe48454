package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelay_Exponential(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Cap: 10 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, 3200 * time.Millisecond},
		{7, 10 * time.Second}, // 12.8s обрезается до Cap
		{500, 10 * time.Second},
		{-3, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(p, tt.attempt, nil), "attempt %d", tt.attempt)
	}
}

func TestDelay_Jitter(t *testing.T) {
	p := Policy{Base: time.Second, Cap: time.Minute, Jitter: 0.5}

	// rnd=0 -> без уменьшения, rnd->1 -> минус половина
	assert.Equal(t, 4*time.Second, Delay(p, 2, func() float64 { return 0 }))
	assert.Equal(t, 3*time.Second, Delay(p, 2, func() float64 { return 0.5 }))

	// Jitter никогда не выводит задержку за Cap
	for i := 0; i < 100; i++ {
		d := p.Next(20)
		assert.LessOrEqual(t, d, time.Minute)
		assert.GreaterOrEqual(t, d, 30*time.Second)
	}
}

func TestDelay_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), Delay(Policy{}, 3, nil))
}

func TestDelay_JitterClamped(t *testing.T) {
	p := Policy{Base: time.Second, Cap: time.Minute, Jitter: 5}
	assert.Equal(t, time.Duration(0), Delay(p, 0, func() float64 { return 1 }))
}
