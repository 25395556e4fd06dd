package coordinator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	pkgsync "github.com/stacklok/omnifield-ingest/internal/sync"
	syncmocks "github.com/stacklok/omnifield-ingest/internal/sync/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runCoordinator(t *testing.T, coord Coordinator) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- coord.Start(context.Background())
	}()
	return errCh
}

func stopAndWait(t *testing.T, coord Coordinator, errCh <-chan error) {
	t.Helper()
	require.NoError(t, coord.Stop())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c, ok := New(syncmocks.NewMockManager(ctrl)).(*defaultCoordinator)
	require.True(t, ok)
	assert.Equal(t, DefaultInterval, c.interval)
	assert.Equal(t, maxJitter, c.jitter)

	c = New(syncmocks.NewMockManager(ctrl), WithInterval(time.Minute)).(*defaultCoordinator)
	assert.Equal(t, 6*time.Second, c.jitter)

	c = New(syncmocks.NewMockManager(ctrl), WithInterval(time.Minute), WithJitter(0)).(*defaultCoordinator)
	assert.Equal(t, time.Minute, c.nextInterval())
}

func TestNextInterval_StaysWithinJitter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(syncmocks.NewMockManager(ctrl), WithInterval(time.Minute), WithJitter(10*time.Second)).(*defaultCoordinator)

	for range 100 {
		d := c.nextInterval()
		assert.GreaterOrEqual(t, d, 50*time.Second)
		assert.Less(t, d, 70*time.Second)
	}
}

func TestStop_BeforeStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	coord := New(syncmocks.NewMockManager(ctrl))

	// Stop should not block if called before Start
	assert.NoError(t, coord.Stop())
}

func TestStart_InitialRefresh(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	refreshed := make(chan struct{})
	manager.EXPECT().ShouldRefresh(gomock.Any()).Return(pkgsync.ReasonRegistryNotReady)
	manager.EXPECT().PerformRefresh(gomock.Any()).DoAndReturn(func(context.Context) *pkgsync.Result {
		close(refreshed)
		return &pkgsync.Result{SnapshotID: "s1", Sources: 3, Failed: 1}
	})

	coord := New(manager, WithInterval(time.Hour))
	errCh := runCoordinator(t, coord)

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("initial refresh did not run")
	}

	stopAndWait(t, coord, errCh)
}

func TestStart_SkipsWhenUpToDate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	checked := make(chan struct{})
	manager.EXPECT().ShouldRefresh(gomock.Any()).DoAndReturn(func(context.Context) pkgsync.Reason {
		close(checked)
		return pkgsync.ReasonUpToDate
	})
	// PerformRefresh must not be called

	coord := New(manager, WithInterval(time.Hour))
	errCh := runCoordinator(t, coord)

	select {
	case <-checked:
	case <-time.After(5 * time.Second):
		t.Fatal("initial check did not run")
	}

	stopAndWait(t, coord, errCh)
}

func TestStart_PeriodicChecks(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	var checks atomic.Int32
	enough := make(chan struct{})
	manager.EXPECT().ShouldRefresh(gomock.Any()).DoAndReturn(func(context.Context) pkgsync.Reason {
		if checks.Add(1) == 3 {
			close(enough)
		}
		return pkgsync.ReasonSourceDataChanged
	}).MinTimes(3)
	manager.EXPECT().PerformRefresh(gomock.Any()).Return(&pkgsync.Result{Sources: 1}).MinTimes(3)

	coord := New(manager, WithInterval(5*time.Millisecond), WithJitter(0))
	errCh := runCoordinator(t, coord)

	select {
	case <-enough:
	case <-time.After(5 * time.Second):
		t.Fatal("periodic checks did not run")
	}

	stopAndWait(t, coord, errCh)
}

func TestStart_ReturnsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().ShouldRefresh(gomock.Any()).Return(pkgsync.ReasonUpToDate).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	coord := New(manager, WithInterval(time.Hour))

	errCh := make(chan error, 1)
	go func() { errCh <- coord.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop on cancel")
	}

	// Stop after the loop has exited returns immediately
	assert.NoError(t, coord.Stop())
}
