package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/questlog/api/transport"
	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/usecase"
)

// Config controls the remote store client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures consecutive failures open the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
	// Dial overrides the transport dialer; used by tests.
	Dial fasthttp.DialFunc
}

// Client talks to the remote store over HTTP. Requests fail fast while the
// circuit breaker is open.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

// StatusError is a non-2xx answer from the remote store.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store answered %d %s: %s", e.Status, e.Code, e.Message)
}

type rawEnvelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  interface{}     `json:"error"`
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			Name:         "questlog",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			Dial:         cfg.Dial,
		},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) CreateUser(ctx context.Context, session domain.Session, initial domain.InitialProgress) (*domain.Registration, error) {
	req := transport.CreateUserRequest{
		SessionIdentifier: session.Identifier,
		XP:                initial.XP,
		Level:             initial.Level,
		TasksCompleted:    initial.TasksCompleted,
	}
	var reg domain.Registration
	if err := c.do(ctx, fasthttp.MethodPost, "/api/users", session.Token, req, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *Client) GetUser(ctx context.Context, session domain.Session, userID string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, fasthttp.MethodGet, "/api/users/"+userID, session.Token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) PutUser(ctx context.Context, session domain.Session, userID string, update domain.ProgressUpdate) (bool, error) {
	var resp transport.UpdateUserResponse
	if err := c.do(ctx, fasthttp.MethodPut, "/api/users/"+userID, session.Token, transport.NewUpdateUserRequest(update), &resp); err != nil {
		return false, err
	}
	return resp.Applied, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error) {
	path := "/api/leaderboard?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	users := make([]domain.User, 0)
	if err := c.do(ctx, fasthttp.MethodGet, path, "", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dest interface{}) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = encoded
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, token, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.NewSyncError(strings.ToLower(method)+" "+path, err)
		}
		return mapStatusError(err)
	}
	if dest == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, payload []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Debug("remote request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, err
	}

	var env rawEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if resp.StatusCode() >= http.StatusBadRequest {
			return nil, &StatusError{Status: resp.StatusCode(), Message: string(resp.Body())}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest || env.Status == "error" {
		return nil, &StatusError{
			Status:  resp.StatusCode(),
			Code:    env.Code,
			Message: fmt.Sprint(env.Error),
		}
	}
	return append([]byte(nil), env.Data...), nil
}

func mapStatusError(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	switch {
	case statusErr.Code == transport.CodeUserNotFound:
		return domain.WrapError(domain.ErrCodeNotFound, statusErr.Message, domain.ErrUserNotFound)
	case statusErr.Status == http.StatusUnauthorized:
		return domain.WrapError(domain.ErrCodeUnauthorized, statusErr.Message, domain.ErrUnauthorized)
	case statusErr.Status == http.StatusForbidden:
		return domain.WrapError(domain.ErrCodeForbidden, statusErr.Message, domain.ErrForbidden)
	case statusErr.Status == http.StatusBadRequest:
		return domain.WrapError(domain.ErrCodeInvalid, statusErr.Message, statusErr)
	default:
		return err
	}
}

var _ usecase.RemoteStore = (*Client)(nil)
