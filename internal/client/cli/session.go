package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/fieldsync/internal/client/storage"
)

// TokenEnv переменная окружения с токеном доступа
const TokenEnv = "FIELDSYNC_TOKEN"

// TokenSource источники токена для login
type TokenSource struct {
	FromFile string
	FromArgs string
}

// tokenClaims поля токена, которые нужны клиенту.
// Подпись проверяет сервер, клиент только читает tenant_id, subject и срок.
type tokenClaims struct {
	TenantID string `json:"tenant_id"`
	gojwt.RegisteredClaims
}

// Login сохраняет сессию с токеном, выданным оператором (`fieldsync-server token`)
func (c *Cli) Login(ctx context.Context, serverURL string, src TokenSource) error {
	token, err := c.readToken(src)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	var claims tokenClaims
	if _, _, err := gojwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	if claims.TenantID == "" {
		return errors.New("token has no tenant_id claim")
	}

	session := &storage.Session{
		ServerURL: serverURL,
		TenantID:  claims.TenantID,
		DeviceID:  claims.Subject,
		Token:     token,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.UTC()
	}
	if session.Expired(c.now()) {
		return fmt.Errorf("token expired at %s", session.ExpiresAt.Format(time.RFC3339))
	}

	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Printf("Logged in to %s\n", serverURL)
	c.io.Printf("Tenant: %s\n", session.TenantID)
	if session.DeviceID != "" {
		c.io.Printf("Device: %s\n", session.DeviceID)
	}
	return nil
}

// readToken читает токен по приоритету:
// 1. Переменная окружения FIELDSYNC_TOKEN
// 2. Файл --token-file
// 3. Параметр --token
// 4. Интерактивный ввод
func (c *Cli) readToken(src TokenSource) (string, error) {
	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		return env, nil
	}

	if src.FromFile != "" {
		content, err := os.ReadFile(src.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		token := strings.TrimSpace(string(content))
		if token == "" {
			return "", errors.New("token file is empty")
		}
		return token, nil
	}

	if src.FromArgs != "" {
		return src.FromArgs, nil
	}

	token, err := c.io.ReadSecret("Token: ")
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	if token == "" {
		return "", errors.New("token cannot be empty")
	}
	return token, nil
}

// Logout удаляет сессию. Очередь и снимок сохраняются.
func (c *Cli) Logout(ctx context.Context) error {
	err := c.sessions.DeleteSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.io.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	c.io.Println("Logged out. Queued mutations are kept and will be sent after the next login.")
	return nil
}

// StatusReport состояние клиента
type StatusReport struct {
	ExpiresAt      *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	ServerURL      string     `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	TenantID       string     `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	DeviceID       string     `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Server         string     `json:"server,omitempty" yaml:"server,omitempty"`
	LastSequenceID int64      `json:"last_sequence_id" yaml:"last_sequence_id"`
	Pending        int        `json:"pending" yaml:"pending"`
	Conflicts      int        `json:"conflicts" yaml:"conflicts"`
	Failed         int        `json:"failed" yaml:"failed"`
	Authenticated  bool       `json:"authenticated" yaml:"authenticated"`
	Expired        bool       `json:"expired,omitempty" yaml:"expired,omitempty"`
}

// Status показывает сессию, курсор потока и состояние очереди
func (c *Cli) Status(ctx context.Context) error {
	report := StatusReport{}

	session, err := c.sessions.GetSession(ctx)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
	case err != nil:
		return fmt.Errorf("failed to get session: %w", err)
	default:
		report.Authenticated = true
		report.ServerURL = session.ServerURL
		report.TenantID = session.TenantID
		report.DeviceID = session.DeviceID
		report.Expired = session.Expired(c.now())
		if !session.ExpiresAt.IsZero() {
			expiresAt := session.ExpiresAt
			report.ExpiresAt = &expiresAt
		}
	}

	cursor, err := c.snapshot.GetCursor(ctx, c.subscriberID)
	if err != nil {
		return fmt.Errorf("failed to get cursor: %w", err)
	}
	report.LastSequenceID = cursor.LastSequenceID

	if report.Pending, report.Conflicts, report.Failed, err = c.queueCounts(ctx); err != nil {
		return err
	}

	if c.server != nil && report.Authenticated {
		// Недоступный сервер не ошибка: клиент работает офлайн
		if health, err := c.server.Health(ctx); err != nil {
			report.Server = "unreachable"
		} else {
			report.Server = health.Status
		}
	}

	return c.render(report, func() {
		c.io.Println("=== FieldSync Status ===")
		c.io.Println()
		if !report.Authenticated {
			c.io.Println("Session: not logged in")
			c.io.Println("Run 'fieldsync login' to authenticate.")
		} else {
			c.io.Printf("Server:  %s", report.ServerURL)
			if report.Server != "" {
				c.io.Printf(" (%s)", report.Server)
			}
			c.io.Println()
			c.io.Printf("Tenant:  %s\n", report.TenantID)
			c.io.Printf("Device:  %s\n", report.DeviceID)
			if report.ExpiresAt != nil {
				if report.Expired {
					c.io.Printf("Token:   expired %s, please login again\n", c.ago(*report.ExpiresAt))
				} else {
					c.io.Printf("Token:   expires %s\n", c.ago(*report.ExpiresAt))
				}
			}
		}
		c.io.Println()
		c.io.Printf("Stream cursor: %d\n", report.LastSequenceID)
		c.io.Printf("Queue: %d pending, %d conflict(s), %d failed\n", report.Pending, report.Conflicts, report.Failed)
		if report.Conflicts > 0 {
			c.io.Println("Run 'fieldsync conflicts' to review conflicts.")
		}
	})
}

func (c *Cli) queueCounts(ctx context.Context) (pending, conflicts, failed int, err error) {
	p, err := c.queue.Pending(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	cf, err := c.queue.Conflicts(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list conflicts: %w", err)
	}
	f, err := c.queue.Failed(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list failed mutations: %w", err)
	}
	return len(p), len(cf), len(f), nil
}
