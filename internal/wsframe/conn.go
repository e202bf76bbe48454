// Package wsframe передает api.Frame поверх websocket бинарными сообщениями.
// Используется и сервером (Gateway), и клиентом (Realtime Subscriber).
package wsframe

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/fieldsync/pkg/api"
)

// DefaultWriteTimeout таймаут записи одного кадра
const DefaultWriteTimeout = 10 * time.Second

// Conn обертка над *websocket.Conn.
// Допускается один писатель и один читатель одновременно.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration
}

// New оборачивает соединение. readTimeout = 0 отключает дедлайн чтения.
func New(ws *websocket.Conn, writeTimeout, readTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{
		ws:           ws,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
	}
}

// WriteFrame сериализует и отправляет кадр
func (c *Conn) WriteFrame(ctx context.Context, f *api.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := api.EncodeFrame(f)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// Таймаут записи websocket не восстанавливается: после ошибки соединение закрывается
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// ReadFrame читает следующий кадр. Пустое бинарное сообщение (ping) возвращается
// как heartbeat кадр, текстовые сообщения пропускаются.
func (c *Conn) ReadFrame(ctx context.Context) (*api.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.readTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		if len(message) == 0 {
			return &api.Frame{Type: api.FrameHeartbeat}, nil
		}

		return api.DecodeFrame(message)
	}
}

// Close отправляет close кадр и закрывает соединение
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

// CloseWithReason закрывает соединение с кодом и причиной
func (c *Conn) CloseWithReason(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}
