package remote

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/questlog/api/handler"
	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/internal/infrastructure/monitor"
	sqlitedb "github.com/fastygo/questlog/internal/infrastructure/sqlite"
	"github.com/fastygo/questlog/internal/middleware"
	"github.com/fastygo/questlog/internal/router"
	"github.com/fastygo/questlog/pkg/httpcontext"
	"github.com/fastygo/questlog/repository/sqlite"
	"github.com/fastygo/questlog/usecase/users"
)

const secret = "remote-test"

func serve(t *testing.T, h fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return New(Config{
		BaseURL:         "http://remote/",
		Timeout:         time.Second,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
		Dial:            func(addr string) (net.Conn, error) { return ln.Dial() },
	}, nil)
}

func newStoreClient(t *testing.T) *Client {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	uc := users.New(sqlite.NewUserRepository(db), nil, nil)
	adapter := httpcontext.NewAdapter(time.Second)
	r := router.New(router.Handlers{
		User:        handler.NewUserHandler(uc, adapter, nil),
		Leaderboard: handler.NewLeaderboardHandler(uc, adapter, nil),
		Health:      handler.NewHealthHandler(monitor.New(time.Minute, nil), adapter, nil),
	}, middleware.BearerAuth(secret, "", nil))
	return serve(t, r.Handler)
}

func session(t *testing.T, subject string) domain.Session {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject}).SignedString([]byte(secret))
	require.NoError(t, err)
	return domain.Session{Identifier: subject, Token: token}
}

func TestCreateGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newStoreClient(t)
	alice := session(t, "alice")

	reg, err := client.CreateUser(ctx, alice, domain.InitialProgress{XP: 150, Level: 2, TasksCompleted: 1})
	require.NoError(t, err)
	assert.False(t, reg.Exists)
	require.NotEmpty(t, reg.UserID)

	again, err := client.CreateUser(ctx, alice, domain.InitialProgress{})
	require.NoError(t, err)
	assert.True(t, again.Exists)
	assert.Equal(t, reg.UserID, again.UserID)

	due := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	done := time.Date(2024, 7, 30, 18, 0, 0, 0, time.UTC)
	applied, err := client.PutUser(ctx, alice, reg.UserID, domain.ProgressUpdate{
		XP:             450,
		Level:          3,
		TasksCompleted: 1,
		Tasks:          []domain.Task{{ID: "t1", Name: "Plan", Deadline: &due, Experience: 150}},
		CompletedTasks: []domain.Task{{ID: "t0", Name: "Start", CompletedAt: &done, Experience: 150}},
		Version:        100,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = client.PutUser(ctx, alice, reg.UserID, domain.ProgressUpdate{XP: 1, Version: 99})
	require.NoError(t, err)
	assert.False(t, applied)

	user, err := client.GetUser(ctx, alice, reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, 450, user.XP)
	require.Len(t, user.Tasks, 1)
	assert.True(t, due.Equal(*user.Tasks[0].Deadline))
	require.Len(t, user.CompletedTasks, 1)
	assert.True(t, done.Equal(*user.CompletedTasks[0].CompletedAt))

	board, err := client.Leaderboard(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].SessionIdentifier)
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	client := newStoreClient(t)
	alice := session(t, "alice")

	_, err := client.GetUser(ctx, alice, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = client.CreateUser(ctx, domain.Session{Identifier: "alice", Token: "forged"}, domain.InitialProgress{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = client.CreateUser(ctx, session(t, "bob"), domain.InitialProgress{})
	require.NoError(t, err)
	_, err = client.CreateUser(ctx, domain.Session{Identifier: "carol", Token: alice.Token}, domain.InitialProgress{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	ctx := context.Background()
	client := newStoreClient(t)
	alice := session(t, "alice")

	for i := 0; i < 5; i++ {
		_, err := client.GetUser(ctx, alice, "missing")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := serve(t, func(ctx *fasthttp.RequestCtx) {
		hits.Add(1)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"status":"error","code":"INTERNAL","error":"internal error"}`)
	})
	ctx := context.Background()
	alice := domain.Session{Identifier: "alice", Token: "t"}

	for i := 0; i < 2; i++ {
		_, err := client.GetUser(ctx, alice, "u1")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, fasthttp.StatusInternalServerError, statusErr.Status)
	}

	_, err := client.GetUser(ctx, alice, "u1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeSyncFailed))
	assert.Equal(t, int32(2), hits.Load())
}

func TestNonJSONErrorBody(t *testing.T) {
	client := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetBodyString("bad gateway")
	})
	_, err := client.Leaderboard(context.Background(), 10, 0)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, fasthttp.StatusBadGateway, statusErr.Status)
	assert.Equal(t, "bad gateway", statusErr.Message)
}

func TestCanceledContext(t *testing.T) {
	client := serve(t, func(ctx *fasthttp.RequestCtx) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Leaderboard(ctx, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
