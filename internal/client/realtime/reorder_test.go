package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/fieldsync/internal/models"
)

func seqs(envs []*models.Envelope) []int64 {
	out := make([]int64, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.SequenceID)
	}
	return out
}

func TestReorderBuffer(t *testing.T) {
	tests := []struct {
		name     string
		last     int64
		limit    int
		push     []int64
		want     []int64
		buffered int
	}{
		{
			name:  "in order",
			last:  0,
			limit: 10,
			push:  []int64{1, 2, 3},
			want:  []int64{1, 2, 3},
		},
		{
			name:  "out of order",
			last:  4,
			limit: 10,
			push:  []int64{7, 5, 6, 8},
			want:  []int64{5, 6, 7, 8},
		},
		{
			name:  "duplicates dropped",
			last:  0,
			limit: 10,
			push:  []int64{1, 2, 2, 1, 3, 3},
			want:  []int64{1, 2, 3},
		},
		{
			name:  "already processed",
			last:  10,
			limit: 10,
			push:  []int64{9, 10, 11},
			want:  []int64{11},
		},
		{
			name:     "waits for gap",
			last:     0,
			limit:    10,
			push:     []int64{1, 3, 4},
			want:     []int64{1},
			buffered: 2,
		},
		{
			name:  "overflow skips gap",
			last:  0,
			limit: 2,
			push:  []int64{2, 3, 4},
			want:  []int64{2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newReorderBuffer(tt.last, tt.limit)

			var got []*models.Envelope
			for _, seq := range tt.push {
				got = append(got, b.push(&models.Envelope{SequenceID: seq})...)
			}

			assert.Equal(t, tt.want, seqs(got))
			assert.Equal(t, tt.buffered, b.buffered())
		})
	}
}

func TestReorderBuffer_Flush(t *testing.T) {
	b := newReorderBuffer(0, 10)

	assert.Empty(t, b.push(&models.Envelope{SequenceID: 5}))
	assert.Empty(t, b.push(&models.Envelope{SequenceID: 3}))
	assert.Equal(t, []int64{3, 5}, seqs(b.flush()))
	assert.Nil(t, b.flush())

	// После flush дубликаты отбрасываются относительно последнего отданного
	assert.Empty(t, b.push(&models.Envelope{SequenceID: 4}))
	assert.Equal(t, []int64{6}, seqs(b.push(&models.Envelope{SequenceID: 6})))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}
