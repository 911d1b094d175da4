package remotesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/usecase"
)

// State is the coordinator's position in the per-session state machine.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateSynced          State = "synced"
	StateError           State = "error"
)

// LocalState is the engine surface the coordinator reconciles.
type LocalState interface {
	Snapshot() domain.Snapshot
	// ApplyRemote overwrites local state with a pulled record only while
	// current reports true, evaluated under the engine's own lock.
	ApplyRemote(ctx context.Context, user *domain.User, current func() bool) (domain.Snapshot, bool)
	ResetProgress(ctx context.Context) domain.Progress
}

// Config controls retry and debouncing policy.
type Config struct {
	// RetryAttempts bounds account creation attempts on sign-in.
	RetryAttempts int
	// RetryBaseDelay is multiplied by the attempt number between attempts.
	RetryBaseDelay time.Duration
	// PushTimeout bounds one background push.
	PushTimeout time.Duration
	// Debounce coalesces snapshots observed within the window into one push.
	// Zero pushes every snapshot immediately.
	Debounce time.Duration
	// Sleep waits between retries; overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Coordinator reconciles local engine state with the remote store while a
// session is active. Local mutations never wait on it.
type Coordinator struct {
	remote  usecase.RemoteStore
	local   LocalState
	gateway usecase.SessionGateway
	logger  *zap.Logger
	cfg     Config

	mu         sync.Mutex
	state      State
	session    *domain.Session
	generation uint64
	lastErr    error
	pending    *domain.Snapshot
	timer      *time.Timer
	timerSeq   uint64
	onError    func(error)

	// inflight counts armed debounce timers and running pushes; idle is
	// signaled on c.mu when it drops to zero.
	inflight int
	idle     *sync.Cond
}

func New(remote usecase.RemoteStore, local LocalState, gateway usecase.SessionGateway, logger *zap.Logger, cfg Config) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	c := &Coordinator{
		remote:  remote,
		local:   local,
		gateway: gateway,
		logger:  logger,
		cfg:     cfg,
		state:   StateUnauthenticated,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// SetErrorHandler registers a callback for background push failures.
func (c *Coordinator) SetErrorHandler(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Resume restores a previously linked session from the gateway without any
// network traffic. An absent or unlinked session leaves the coordinator
// unauthenticated.
func (c *Coordinator) Resume(ctx context.Context) error {
	session, err := c.gateway.Current(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotAuthenticated) {
			return nil
		}
		return err
	}
	if !session.Linked() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.session = session
	c.state = StateSynced
	c.logger.Debug("session resumed", zap.String("user_id", session.UserID))
	return nil
}

// SignIn links a freshly authenticated session: the remote record is created
// (or found) with bounded retries, then either pulled over local state or
// seeded from it.
func (c *Coordinator) SignIn(ctx context.Context, session domain.Session) (*domain.Registration, error) {
	if !session.IsValid() {
		return nil, domain.NewValidationError("session", "identifier and token are required")
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session = nil
	c.state = StateAuthenticating
	c.cancelPendingLocked()
	c.mu.Unlock()

	local := c.local.Snapshot()
	initial := domain.InitialProgress{
		XP:             local.Progress.TotalExperience,
		Level:          local.Progress.Level,
		TasksCompleted: len(local.Completed),
	}

	reg, err := c.createWithRetry(ctx, session, initial)
	if err != nil {
		c.failSignIn(ctx, gen, err)
		return nil, err
	}
	if !c.isCurrent(gen) {
		return nil, domain.ErrSessionMismatch
	}

	session.UserID = reg.UserID
	if err := c.gateway.Store(ctx, session); err != nil {
		c.failSignIn(ctx, gen, err)
		return nil, err
	}

	seed := !reg.Exists
	if reg.Exists {
		user, err := c.remote.GetUser(ctx, session, reg.UserID)
		if err != nil {
			c.linkWithError(gen, session, domain.NewSyncError("pull", err))
			return reg, c.LastError()
		}
		if _, ok := c.local.ApplyRemote(ctx, user, func() bool { return c.isCurrent(gen) }); !ok {
			c.logger.Debug("discarding pulled record for stale session", zap.String("user_id", reg.UserID))
			return nil, domain.ErrSessionMismatch
		}
		seed = !user.HasTaskState()
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil, domain.ErrSessionMismatch
	}
	linked := session
	c.session = &linked
	c.state = StateSynced
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("session linked",
		zap.String("user_id", reg.UserID),
		zap.Bool("existing", reg.Exists))

	if seed {
		if err := c.pushNow(ctx, gen, linked, c.local.Snapshot()); err != nil && !errors.Is(err, domain.ErrSessionMismatch) {
			return reg, err
		}
	}
	return reg, nil
}

// SignOut drops the session. Only remote-linked fields are cleared; task
// content stays so the device keeps working offline. Responses of pushes
// still in flight are discarded.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	c.session = nil
	c.state = StateUnauthenticated
	c.lastErr = nil
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.local.ResetProgress(ctx)
	if err := c.gateway.Invalidate(ctx); err != nil {
		return err
	}
	c.logger.Info("signed out")
	return nil
}

// Observe schedules a push of the snapshot when a session is active. It never
// blocks on the network.
func (c *Coordinator) Observe(snapshot domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.state == StateAuthenticating {
		return
	}

	if c.cfg.Debounce > 0 {
		c.pending = &snapshot
		if c.timer == nil {
			c.timerSeq++
			seq := c.timerSeq
			c.inflight++
			c.timer = time.AfterFunc(c.cfg.Debounce, func() { c.flushPending(seq) })
		}
		return
	}
	c.launchLocked(snapshot)
}

// Push synchronously sends the current local snapshot.
func (c *Coordinator) Push(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	gen, session := c.generation, *c.session
	c.mu.Unlock()

	return c.pushNow(ctx, gen, session, c.local.Snapshot())
}

// Wait flushes any debounced snapshot and blocks until in-flight pushes end.
// It may be called repeatedly and concurrently with Observe; snapshots
// observed while it waits are waited for too.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil && c.timer.Stop() {
		c.timer = nil
		c.timerSeq++
		if c.pending != nil && c.session != nil {
			c.launchLocked(*c.pending)
		}
		c.pending = nil
		c.doneLocked()
	}
	for c.inflight > 0 {
		c.idle.Wait()
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent sync failure, cleared by the next success.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Session returns a copy of the linked session, or nil.
func (c *Coordinator) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Coordinator) flushPending(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.doneLocked()
	if seq != c.timerSeq {
		return
	}
	c.timer = nil
	if c.pending == nil || c.session == nil {
		c.pending = nil
		return
	}
	c.launchLocked(*c.pending)
	c.pending = nil
}

func (c *Coordinator) launchLocked(snapshot domain.Snapshot) {
	gen, session := c.generation, *c.session
	c.inflight++
	go func() {
		defer func() {
			c.mu.Lock()
			c.doneLocked()
			c.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PushTimeout)
		defer cancel()
		if err := c.pushNow(ctx, gen, session, snapshot); err != nil {
			if errors.Is(err, domain.ErrSessionMismatch) {
				return
			}
			c.mu.Lock()
			handler := c.onError
			c.mu.Unlock()
			if handler != nil {
				handler(err)
			}
		}
	}()
}

// pushNow sends one full snapshot. Responses arriving for a session that is
// no longer current are discarded with ErrSessionMismatch.
func (c *Coordinator) pushNow(ctx context.Context, gen uint64, session domain.Session, snapshot domain.Snapshot) error {
	update := domain.ProgressUpdate{
		XP:             snapshot.Progress.TotalExperience,
		Level:          snapshot.Progress.Level,
		TasksCompleted: len(snapshot.Completed),
		Tasks:          nonNil(snapshot.Active),
		CompletedTasks: nonNil(snapshot.Completed),
		Version:        snapshot.Version,
	}

	applied, err := c.remote.PutUser(ctx, session, session.UserID, update)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("discarding push response for stale session", zap.Int64("version", snapshot.Version))
		return domain.ErrSessionMismatch
	}
	if err != nil {
		syncErr := domain.NewSyncError("push", err)
		c.state = StateError
		c.lastErr = syncErr
		c.logger.Warn("push failed", zap.Int64("version", snapshot.Version), zap.Error(err))
		return syncErr
	}
	if !applied {
		c.logger.Debug("push superseded by a newer write", zap.Int64("version", snapshot.Version))
	}
	c.state = StateSynced
	c.lastErr = nil
	return nil
}

func (c *Coordinator) createWithRetry(ctx context.Context, session domain.Session, initial domain.InitialProgress) (*domain.Registration, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		reg, err := c.remote.CreateUser(ctx, session, initial)
		if err == nil {
			if reg == nil || reg.UserID == "" {
				err = errors.New("no user id received from server")
			} else {
				return reg, nil
			}
		}
		lastErr = err
		c.logger.Warn("account creation attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.RetryAttempts),
			zap.Error(err))

		if attempt == c.cfg.RetryAttempts {
			break
		}
		if err := c.cfg.Sleep(ctx, time.Duration(attempt)*c.cfg.RetryBaseDelay); err != nil {
			lastErr = err
			break
		}
	}
	c.logger.Error("account creation failed", zap.Error(lastErr))
	return nil, domain.NewSyncError("create user", lastErr)
}

func (c *Coordinator) failSignIn(ctx context.Context, gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = StateUnauthenticated
	c.session = nil
	c.lastErr = err
	c.mu.Unlock()

	if invErr := c.gateway.Invalidate(ctx); invErr != nil {
		c.logger.Warn("failed to invalidate session", zap.Error(invErr))
	}
}

func (c *Coordinator) linkWithError(gen uint64, session domain.Session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.session = &session
	c.state = StateError
	c.lastErr = err
	c.logger.Warn("initial pull failed", zap.Error(err))
}

func (c *Coordinator) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Coordinator) cancelPendingLocked() {
	if c.timer != nil {
		if c.timer.Stop() {
			c.doneLocked()
		}
		c.timer = nil
		c.timerSeq++
	}
	c.pending = nil
}

func (c *Coordinator) doneLocked() {
	c.inflight--
	if c.inflight == 0 {
		c.idle.Broadcast()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nonNil(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}

var _ usecase.SnapshotObserver = (*Coordinator)(nil)
