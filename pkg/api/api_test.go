package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func TestFrame_EnvelopeCodec(t *testing.T) {
	env := &models.Envelope{
		SequenceID:    42,
		TenantID:      "t1",
		EntityType:    "stock_item",
		EntityID:      "e1",
		EventType:     models.EventEntityChanged,
		ProducerID:    "p1",
		Payload:       json.RawMessage(`{"version":3}`),
		OccurredAt:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		EntityVersion: 3,
	}

	data, err := EncodeFrame(&Frame{Type: FrameEnvelope, Envelope: env})
	require.NoError(t, err)

	got, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, FrameEnvelope, got.Type)
	assert.Equal(t, env, got.Envelope)
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{name: "unknown type", frame: &Frame{Type: "bogus"}},
		{name: "envelope frame without envelope", frame: &Frame{Type: FrameEnvelope}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			require.NoError(t, err)

			_, err = DecodeFrame(data)
			assert.Error(t, err)
		})
	}

	_, err := DecodeFrame([]byte{0xc1})
	assert.Error(t, err)
}

func TestPackChecksum(t *testing.T) {
	entities := []PackEntity{
		{EntityType: "stock_item", EntityID: "e1", Version: 2, Fields: map[string]any{"b": 1, "a": "x"}},
	}

	sum1, err := PackChecksum(entities)
	require.NoError(t, err)
	assert.Len(t, sum1, 64)

	// Порядок ключей map не влияет на сумму
	reordered := []PackEntity{
		{EntityType: "stock_item", EntityID: "e1", Version: 2, Fields: map[string]any{"a": "x", "b": 1}},
	}
	sum2, err := PackChecksum(reordered)
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)

	entities[0].Version = 3
	sum3, err := PackChecksum(entities)
	require.NoError(t, err)
	assert.NotEqual(t, sum1, sum3)

	empty1, err := PackChecksum(nil)
	require.NoError(t, err)
	empty2, err := PackChecksum([]PackEntity{})
	require.NoError(t, err)
	assert.Equal(t, empty1, empty2)
}
