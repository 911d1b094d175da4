package remotesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/questlog/domain"
)

type fakeRemote struct {
	mu        sync.Mutex
	createErr []error
	creates   int
	reg       domain.Registration
	user      *domain.User
	getErr    error
	putErr    error
	puts      []domain.ProgressUpdate
	putGate   chan struct{}
	putEnter  chan struct{}
	// beforeGet runs before GetUser answers, outside the fake's lock.
	beforeGet func()
}

func (f *fakeRemote) CreateUser(ctx context.Context, session domain.Session, initial domain.InitialProgress) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		if err != nil {
			return nil, err
		}
	}
	reg := f.reg
	if !reg.Exists {
		reg.XP = initial.XP
		reg.Level = initial.Level
	}
	return &reg, nil
}

func (f *fakeRemote) GetUser(ctx context.Context, session domain.Session, userID string) (*domain.User, error) {
	if f.beforeGet != nil {
		f.beforeGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user, nil
}

func (f *fakeRemote) PutUser(ctx context.Context, session domain.Session, userID string, update domain.ProgressUpdate) (bool, error) {
	if f.putEnter != nil {
		f.putEnter <- struct{}{}
	}
	if f.putGate != nil {
		<-f.putGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return false, f.putErr
	}
	f.puts = append(f.puts, update)
	return true, nil
}

func (f *fakeRemote) Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeRemote) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeRemote) setPutErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr = err
}

type fakeGateway struct {
	mu          sync.Mutex
	session     *domain.Session
	invalidated int
}

func (g *fakeGateway) Current(ctx context.Context) (*domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil, domain.ErrNotAuthenticated
	}
	s := *g.session
	return &s, nil
}

func (g *fakeGateway) Store(ctx context.Context, session domain.Session) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = &session
	return nil
}

func (g *fakeGateway) Invalidate(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = nil
	g.invalidated++
	return nil
}

type fakeLocal struct {
	mu       sync.Mutex
	snapshot domain.Snapshot
	applied  []*domain.User
	resets   int
}

func (l *fakeLocal) Snapshot() domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

func (l *fakeLocal) ApplyRemote(ctx context.Context, user *domain.User, current func() bool) (domain.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current != nil && !current() {
		return l.snapshot, false
	}
	l.applied = append(l.applied, user)
	l.snapshot.Progress.TotalExperience = user.XP
	if user.HasTaskState() {
		l.snapshot.Active = user.Tasks
		l.snapshot.Completed = user.CompletedTasks
	}
	return l.snapshot, true
}

func (l *fakeLocal) ResetProgress(ctx context.Context) domain.Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
	l.snapshot.Progress = domain.Progress{Level: 1}
	return l.snapshot.Progress
}

type harness struct {
	remote  *fakeRemote
	gateway *fakeGateway
	local   *fakeLocal
	sleeps  []time.Duration
	coord   *Coordinator
}

func newHarness(cfg Config) *harness {
	h := &harness{
		remote:  &fakeRemote{reg: domain.Registration{UserID: "user-1"}},
		gateway: &fakeGateway{},
		local: &fakeLocal{snapshot: domain.Snapshot{
			Active:   []domain.Task{{ID: "a", Name: "open"}},
			Progress: domain.Progress{TotalExperience: 150, Level: 2},
			Version:  7,
		}},
	}
	cfg.RetryBaseDelay = time.Second
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	h.coord = New(h.remote, h.local, h.gateway, nil, cfg)
	return h
}

var alice = domain.Session{Identifier: "alice", Token: "token"}

func TestSignInSeedsNewAccount(t *testing.T) {
	h := newHarness(Config{})

	reg, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "user-1", reg.UserID)
	assert.Equal(t, StateSynced, h.coord.State())
	assert.Equal(t, "user-1", h.coord.Session().UserID)
	assert.Equal(t, "user-1", h.gateway.session.UserID)

	require.Equal(t, 1, h.remote.putCount())
	seed := h.remote.puts[0]
	assert.Equal(t, 150, seed.XP)
	assert.Equal(t, int64(7), seed.Version)
	assert.NotNil(t, seed.CompletedTasks)
	assert.Empty(t, h.local.applied)
}

func TestSignInPullsExistingAccount(t *testing.T) {
	h := newHarness(Config{})
	h.remote.reg.Exists = true
	h.remote.user = &domain.User{ID: "user-1", XP: 900, Tasks: []domain.Task{}}

	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, h.local.applied, 1)
	assert.Equal(t, 900, h.local.snapshot.Progress.TotalExperience)
	assert.Zero(t, h.remote.putCount(), "pulled records with task state are not re-seeded")
}

func TestSignInSeedsExistingAccountWithoutTasks(t *testing.T) {
	h := newHarness(Config{})
	h.remote.reg.Exists = true
	h.remote.user = &domain.User{ID: "user-1", XP: 900}

	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, h.remote.putCount())
}

func TestSignInRetriesWithLinearBackoff(t *testing.T) {
	h := newHarness(Config{RetryAttempts: 3})
	h.remote.createErr = []error{errors.New("timeout"), errors.New("timeout")}

	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 3, h.remote.creates)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps)
}

func TestSignInGivesUpAfterRetries(t *testing.T) {
	h := newHarness(Config{RetryAttempts: 3})
	boom := errors.New("unavailable")
	h.remote.createErr = []error{boom, boom, boom}

	_, err := h.coord.SignIn(context.Background(), alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeSyncFailed))
	assert.Equal(t, 3, h.remote.creates)
	assert.Len(t, h.sleeps, 2)
	assert.Equal(t, StateUnauthenticated, h.coord.State())
	assert.Nil(t, h.gateway.session)
	assert.Equal(t, 1, h.gateway.invalidated)
}

func TestSignInRejectsIncompleteSession(t *testing.T) {
	h := newHarness(Config{})
	_, err := h.coord.SignIn(context.Background(), domain.Session{Identifier: "alice"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	assert.Zero(t, h.remote.creates)
}

func TestSignInPullFailureLeavesErrorState(t *testing.T) {
	h := newHarness(Config{})
	h.remote.reg.Exists = true
	h.remote.getErr = errors.New("502")

	reg, err := h.coord.SignIn(context.Background(), alice)
	require.Error(t, err)
	assert.NotNil(t, reg)
	assert.Equal(t, StateError, h.coord.State())
	assert.NotNil(t, h.coord.Session())
}

func TestObserveWithoutSessionIsNoop(t *testing.T) {
	h := newHarness(Config{})
	h.coord.Observe(h.local.Snapshot())
	h.coord.Wait()
	assert.Zero(t, h.remote.putCount())
}

func TestPushErrorThenRecovery(t *testing.T) {
	h := newHarness(Config{})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		reported []error
	)
	h.coord.SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})

	h.remote.setPutErr(errors.New("503"))
	h.coord.Observe(h.local.Snapshot())
	h.coord.Wait()
	assert.Equal(t, StateError, h.coord.State())
	assert.True(t, domain.IsDomainError(h.coord.LastError(), domain.ErrCodeSyncFailed))
	mu.Lock()
	assert.Len(t, reported, 1)
	mu.Unlock()

	h.remote.setPutErr(nil)
	h.coord.Observe(h.local.Snapshot())
	h.coord.Wait()
	assert.Equal(t, StateSynced, h.coord.State())
	assert.NoError(t, h.coord.LastError())
}

func TestSignOutDiscardsInflightResponse(t *testing.T) {
	h := newHarness(Config{})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)

	h.remote.putEnter = make(chan struct{}, 1)
	h.remote.putGate = make(chan struct{})
	h.remote.setPutErr(errors.New("late failure"))

	var handled bool
	h.coord.SetErrorHandler(func(error) { handled = true })

	done := make(chan error, 1)
	go func() { done <- h.coord.Push(context.Background()) }()
	<-h.remote.putEnter

	require.NoError(t, h.coord.SignOut(context.Background()))
	close(h.remote.putGate)

	assert.ErrorIs(t, <-done, domain.ErrSessionMismatch)
	h.coord.Wait()
	assert.Equal(t, StateUnauthenticated, h.coord.State())
	assert.NoError(t, h.coord.LastError())
	assert.False(t, handled)
}

func TestSignOutKeepsTasksAndResetsProgress(t *testing.T) {
	h := newHarness(Config{})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)

	require.NoError(t, h.coord.SignOut(context.Background()))
	assert.Equal(t, 1, h.local.resets)
	assert.Len(t, h.local.Snapshot().Active, 1)
	assert.Nil(t, h.coord.Session())
	assert.Nil(t, h.gateway.session)

	assert.ErrorIs(t, h.coord.Push(context.Background()), domain.ErrNotAuthenticated)
}

func TestResume(t *testing.T) {
	h := newHarness(Config{})
	require.NoError(t, h.coord.Resume(context.Background()))
	assert.Equal(t, StateUnauthenticated, h.coord.State())

	h.gateway.session = &domain.Session{Identifier: "alice", Token: "t"}
	require.NoError(t, h.coord.Resume(context.Background()))
	assert.Equal(t, StateUnauthenticated, h.coord.State(), "unlinked sessions are not resumed")

	h.gateway.session.UserID = "user-1"
	require.NoError(t, h.coord.Resume(context.Background()))
	assert.Equal(t, StateSynced, h.coord.State())
	assert.Zero(t, h.remote.creates)
}

func TestDebounceCoalescesSnapshots(t *testing.T) {
	h := newHarness(Config{Debounce: time.Hour})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	seeded := h.remote.putCount()

	for v := int64(10); v < 15; v++ {
		snapshot := h.local.Snapshot()
		snapshot.Version = v
		h.coord.Observe(snapshot)
	}
	assert.Equal(t, seeded, h.remote.putCount())

	h.coord.Wait()
	require.Equal(t, seeded+1, h.remote.putCount())
	assert.Equal(t, int64(14), h.remote.puts[len(h.remote.puts)-1].Version)
}

func TestDebounceFiresOnTimer(t *testing.T) {
	h := newHarness(Config{Debounce: 10 * time.Millisecond})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	seeded := h.remote.putCount()

	h.coord.Observe(h.local.Snapshot())
	assert.Eventually(t, func() bool { return h.remote.putCount() == seeded+1 }, time.Second, 5*time.Millisecond)
	h.coord.Wait()
}

func TestSignOutDuringPullKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(Config{})
	h.remote.reg.Exists = true
	h.remote.user = &domain.User{
		ID:             "user-1",
		XP:             900,
		Tasks:          []domain.Task{{ID: "r1", Name: "remote"}},
		CompletedTasks: []domain.Task{},
	}
	h.remote.beforeGet = func() {
		require.NoError(t, h.coord.SignOut(ctx))
	}

	reg, err := h.coord.SignIn(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrSessionMismatch)
	assert.Nil(t, reg)

	assert.Empty(t, h.local.applied)
	snapshot := h.local.Snapshot()
	assert.Zero(t, snapshot.Progress.TotalExperience)
	require.Len(t, snapshot.Active, 1)
	assert.Equal(t, "a", snapshot.Active[0].ID)

	assert.Equal(t, StateUnauthenticated, h.coord.State())
	assert.Nil(t, h.coord.Session())
	assert.Zero(t, h.remote.putCount())
}

func TestWaitCanBeReused(t *testing.T) {
	h := newHarness(Config{})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, 1, h.remote.putCount())

	h.coord.Wait()
	h.coord.Observe(h.local.Snapshot())
	h.coord.Wait()
	assert.Equal(t, 2, h.remote.putCount())

	h.coord.Observe(h.local.Snapshot())
	h.coord.Observe(h.local.Snapshot())
	h.coord.Wait()
	h.coord.Wait()
	assert.Equal(t, 4, h.remote.putCount())
}

func TestWaitRacesWithObserve(t *testing.T) {
	h := newHarness(Config{Debounce: time.Millisecond})
	_, err := h.coord.SignIn(context.Background(), alice)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.coord.Observe(h.local.Snapshot())
		}()
		go func() {
			defer wg.Done()
			h.coord.Wait()
		}()
	}
	wg.Wait()
	h.coord.Wait()

	h.coord.mu.Lock()
	defer h.coord.mu.Unlock()
	assert.Zero(t, h.coord.inflight)
	assert.Nil(t, h.coord.timer)
}
