package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

const restPath = "/rest/v1/"

var (
	ErrMissingURL   = errors.New("remote url is required")
	ErrUnauthorized = errors.New("remote unauthorized")
	ErrRateLimited  = errors.New("remote rate limited")
)

// APIError is a non-2xx response from the REST store.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote api error: %s", e.Status)
	}
	return fmt.Sprintf("remote api error: %s: %s", e.Status, e.Body)
}

// RESTConfig configures a PostgREST-compatible endpoint.
type RESTConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration

	// Token returns the session access token; empty falls back to APIKey.
	Token func() string
}

// RESTStore upserts and selects rows through a PostgREST HTTP API, as
// served by Supabase.
type RESTStore struct {
	http   *resty.Client
	apiKey string
	token  func() string
	logger *zap.Logger
}

// NewRESTStore builds a client for cfg.BaseURL.
func NewRESTStore(cfg RESTConfig, logger *zap.Logger) (*RESTStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(2 * cfg.RetryWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})
	if cfg.APIKey != "" {
		httpClient.SetHeader("apikey", cfg.APIKey)
	}

	return &RESTStore{
		http:   httpClient,
		apiKey: cfg.APIKey,
		token:  cfg.Token,
		logger: logger.Named("remote.rest"),
	}, nil
}

// Upsert posts the row with merge-duplicates resolution on user_id.
func (s *RESTStore) Upsert(ctx context.Context, table types.DocKind, userID string, payload json.RawMessage) error {
	if err := checkArgs(table, userID); err != nil {
		return err
	}
	if err := checkPayload(payload); err != nil {
		return err
	}

	row := Row{UserID: userID, Data: payload, UpdatedAt: time.Now().UTC()}
	resp, err := s.request(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetQueryParam("on_conflict", "user_id").
		SetBody(row).
		Post(restPath + string(table))
	if err != nil {
		return fmt.Errorf("remote upsert %s: %w", table, err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	s.logger.Debug("upserted", zap.String("table", string(table)), zap.Int("bytes", len(payload)))
	return nil
}

// FetchOne selects the data column of the user's row.
func (s *RESTStore) FetchOne(ctx context.Context, table types.DocKind, userID string) (json.RawMessage, error) {
	if err := checkArgs(table, userID); err != nil {
		return nil, err
	}

	var rows []struct {
		Data json.RawMessage `json:"data"`
	}
	resp, err := s.request(ctx).
		SetQueryParams(map[string]string{
			"select":  "data",
			"user_id": "eq." + userID,
			"limit":   "1",
		}).
		SetResult(&rows).
		Get(restPath + string(table))
	if err != nil {
		return nil, fmt.Errorf("remote fetch %s: %w", table, err)
	}
	if resp.IsError() {
		return nil, apiErrorFromResponse(resp)
	}
	if len(rows) == 0 || len(rows[0].Data) == 0 || string(rows[0].Data) == "null" {
		return nil, ErrNotFound
	}
	return rows[0].Data, nil
}

// Close is a no-op; resty holds no resources that need releasing.
func (s *RESTStore) Close() error {
	return nil
}

func (s *RESTStore) request(ctx context.Context) *resty.Request {
	req := s.http.R().SetContext(ctx)
	token := ""
	if s.token != nil {
		token = s.token()
	}
	if token == "" {
		token = s.apiKey
	}
	if token != "" {
		req.SetAuthScheme("Bearer").SetAuthToken(token)
	}
	return req
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}

var _ Store = (*RESTStore)(nil)
