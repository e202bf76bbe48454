package api

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/iudanet/fieldsync/internal/models"
)

// FrameType тип кадра push-потока
type FrameType string

const (
	// FrameEnvelope сервер → клиент: очередной конверт
	FrameEnvelope FrameType = "envelope"
	// FrameHeartbeat сервер → клиент: поток жив, HeadSequenceID текущая голова лога
	FrameHeartbeat FrameType = "heartbeat"
	// FrameResyncRequired сервер → клиент: курсор вне окна хранения, нужен data pack
	FrameResyncRequired FrameType = "resync_required"
	// FrameAck клиент → сервер: подтверждение обработки до LastSequenceID
	FrameAck FrameType = "ack"
)

// Frame одно бинарное websocket сообщение, сериализованное в MessagePack
type Frame struct {
	Envelope         *models.Envelope `msgpack:"envelope,omitempty"`
	Type             FrameType        `msgpack:"type"`
	HeadSequenceID   int64            `msgpack:"head_sequence_id,omitempty"`
	OldestSequenceID int64            `msgpack:"oldest_sequence_id,omitempty"`
	LastSequenceID   int64            `msgpack:"last_sequence_id,omitempty"`
}

// EncodeFrame сериализует кадр
func EncodeFrame(f *Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame десериализует кадр
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	switch f.Type {
	case FrameEnvelope:
		if f.Envelope == nil {
			return nil, fmt.Errorf("envelope frame without envelope")
		}
		// msgpack восстанавливает время в локальной зоне
		f.Envelope.OccurredAt = f.Envelope.OccurredAt.UTC()
	case FrameHeartbeat, FrameResyncRequired, FrameAck:
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}

	return &f, nil
}
