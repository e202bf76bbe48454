package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/fieldsync/internal/wsframe"
)

// StreamClient открывает websocket соединение с Gateway
type StreamClient interface {
	DialStream(ctx context.Context, lastSequenceID int64) (*websocket.Conn, error)
}

// WebsocketDialer открывает поток через StreamClient и оборачивает его в wsframe.
// ReadTimeout должен превышать интервал heartbeat сервера: тишина дольше считается обрывом.
type WebsocketDialer struct {
	Client       StreamClient
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// Dial реализует Dialer
func (d *WebsocketDialer) Dial(ctx context.Context, lastSequenceID int64) (Stream, error) {
	ws, err := d.Client.DialStream(ctx, lastSequenceID)
	if err != nil {
		return nil, err
	}
	return wsframe.New(ws, d.WriteTimeout, d.ReadTimeout), nil
}
