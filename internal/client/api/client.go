// Package api HTTP и websocket клиент сервера синхронизации.
// Ошибки классифицируются по internal/syncerr: сетевые сбои и 5xx временные,
// 4xx окончательный отказ.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// DefaultTimeout таймаут HTTP клиента
const DefaultTimeout = 30 * time.Second

// StatusError ответ сервера с неуспешным статусом
type StatusError struct {
	Message    string
	Kind       string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Unwrap связывает статус с категорией syncerr
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusConflict:
		return syncerr.ErrConflict
	case e.StatusCode == http.StatusGone:
		return syncerr.ErrResyncRequired
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return syncerr.ErrTransient
	case e.StatusCode >= 500:
		return syncerr.ErrTransient
	default:
		return syncerr.ErrPermanentReject
	}
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	baseURL    string
	token      string
}

// NewClient создает новый API клиент
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Apply отправляет мутацию в Sync-Apply.
// status=transient_error (HTTP 503) возвращается как ошибка syncerr.ErrTransient.
func (c *Client) Apply(ctx context.Context, req api.ApplyRequest) (*api.ApplyResponse, error) {
	var resp api.ApplyResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/apply", req, &resp); err != nil {
		return nil, fmt.Errorf("apply request failed: %w", err)
	}
	return &resp, nil
}

// Conflicts возвращает конфликты тенанта с указанным статусом
func (c *Client) Conflicts(ctx context.Context, status models.ConflictStatus) ([]*models.ConflictRecord, error) {
	path := "/api/v1/conflicts"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var resp api.ConflictsResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("conflicts request failed: %w", err)
	}
	return resp.Conflicts, nil
}

// Resolve разрешает конфликт на сервере
func (c *Client) Resolve(ctx context.Context, conflictID string, req api.ResolveRequest) (*api.ApplyResponse, error) {
	var resp api.ApplyResponse
	path := "/api/v1/conflicts/" + url.PathEscape(conflictID) + "/resolve"
	if err := c.doRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("resolve request failed: %w", err)
	}
	return &resp, nil
}

// Pack загружает data pack сущностей типа с версией больше sinceVersion
func (c *Client) Pack(ctx context.Context, entityType string, sinceVersion int64) (*api.PackResponse, error) {
	q := url.Values{}
	q.Set("entity_type", entityType)
	q.Set("since_version", strconv.FormatInt(sinceVersion, 10))

	var resp api.PackResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/pack?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("pack request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// DialStream открывает websocket push-потока с курсора lastSequenceID
func (c *Client) DialStream(ctx context.Context, lastSequenceID int64) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/stream")
	if err != nil {
		return nil, syncerr.Reject("invalid server url: %v", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = "last_sequence_id=" + strconv.FormatInt(lastSequenceID, 10)

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("failed to dial stream: %w", &StatusError{StatusCode: resp.StatusCode})
		}
		return nil, syncerr.Transient(fmt.Errorf("failed to dial stream: %w", err))
	}

	return ws, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return syncerr.Reject("failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return syncerr.Reject("failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сеть недоступна или истек таймаут: запрос мог дойти, повтор безопасен по ключу идемпотентности
		return syncerr.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return syncerr.Transient(fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

// decodeError разбирает тело ответа с ошибкой: ErrorResponse или ApplyResponse со status=transient_error
func decodeError(statusCode int, body []byte) error {
	statusErr := &StatusError{StatusCode: statusCode}

	var applyResp api.ApplyResponse
	if err := json.Unmarshal(body, &applyResp); err == nil && applyResp.Status == api.StatusTransientError {
		statusErr.Message = applyResp.Message
		statusErr.Kind = syncerr.KindTransient.String()
		return statusErr
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Message != "" || errResp.Error != "") {
		statusErr.Message = errResp.Message
		if statusErr.Message == "" {
			statusErr.Message = errResp.Error
		}
		statusErr.Kind = errResp.Kind
		return statusErr
	}

	if len(body) > 0 {
		statusErr.Message = strings.TrimSpace(string(body))
	}
	return statusErr
}

// IsUnauthorized сообщает, что сервер отверг токен
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}
