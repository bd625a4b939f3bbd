package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gallery-live/internal/domain"
)

// HTTPSource reads a user's notifications from the REST pull surface with a
// bearer token.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

func WithHTTPClient(c *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// NewHTTPSource targets baseURL, e.g. "https://api.gallery.example/v1".
func NewHTTPSource(baseURL, token string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) ListUnread(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := s.do(ctx, http.MethodGet, "/notifications/unread", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns the newest limit notifications, read or not.
func (s *HTTPSource) ListAll(ctx context.Context, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	path := "/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := s.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) MarkRead(ctx context.Context, notificationID string) error {
	return s.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(notificationID)+"/read", nil)
}

func (s *HTTPSource) MarkAllRead(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := s.do(ctx, http.MethodPut, "/notifications/read-all", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (s *HTTPSource) do(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode,
			strings.TrimSpace(string(body)), statusError(resp.StatusCode))
	}
	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrBadRequest
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
