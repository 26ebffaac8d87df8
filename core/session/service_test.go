package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/idview/core/application"
	"github.com/trezcool/idview/core/session"
	inmemdb "github.com/trezcool/idview/storage/database/inmem"
)

func newService(ttl time.Duration) *session.Service {
	repo := inmemdb.NewSessionRepository(inmemdb.Open())
	return session.NewService(repo, &application.SubmitterMock{}, ttl, 0)
}

func TestService_Create(t *testing.T) {
	svc := newService(time.Hour)

	s1, err := svc.Create("S110/2099/23")
	require.NoError(t, err)
	s2, err := svc.Create("S110/2099/23")
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID, s2.ID)
	assert.NotSame(t, s1.Wizard, s2.Wizard)
	assert.Equal(t, application.FirstStep, s1.Wizard.Step())
	assert.True(t, s1.Wizard.State().Draft.IsEmpty())

	n, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestService_Get(t *testing.T) {
	svc := newService(time.Hour)
	s, err := svc.Create("S110/2099/23")
	require.NoError(t, err)

	got, err := svc.Get(s.ID, "S110/2099/23")
	require.NoError(t, err)
	assert.Same(t, s.Wizard, got.Wizard)
	assert.False(t, got.LastSeen.Before(s.LastSeen))

	_, err = svc.Get(s.ID, "S111/2099/23")
	assert.Equal(t, session.ErrNotFound, err)
	_, err = svc.Get("unknown", "S110/2099/23")
	assert.Equal(t, session.ErrNotFound, err)
}

func TestService_Delete(t *testing.T) {
	svc := newService(time.Hour)
	s, err := svc.Create("S110/2099/23")
	require.NoError(t, err)

	assert.Equal(t, session.ErrNotFound, svc.Delete(s.ID, "someone-else"))
	require.NoError(t, svc.Delete(s.ID, "S110/2099/23"))
	_, err = svc.Get(s.ID, "S110/2099/23")
	assert.Equal(t, session.ErrNotFound, err)
}

func TestService_Expiry(t *testing.T) {
	svc := newService(20 * time.Millisecond)
	idle, err := svc.Create("idle")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	_, err = svc.Get(idle.ID, "idle")
	assert.Equal(t, session.ErrNotFound, err)

	_, err = svc.Create("a")
	require.NoError(t, err)
	_, err = svc.Create("b")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	n, err := svc.Evict()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err := svc.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_NoTTL(t *testing.T) {
	svc := newService(0)
	s, err := svc.Create("S110/2099/23")
	require.NoError(t, err)

	n, err := svc.Evict()
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = svc.Get(s.ID, "S110/2099/23")
	assert.NoError(t, err)
}

func TestService_Run(t *testing.T) {
	svc := newService(time.Millisecond)
	_, err := svc.Create("S110/2099/23")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	evicted := make(chan int, 16)
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond, func(n int, err error) {
			assert.NoError(t, err)
			evicted <- n
		})
		close(done)
	}()

	var total int
	timeout := time.After(time.Second)
	for total == 0 {
		select {
		case n := <-evicted:
			total += n
		case <-timeout:
			t.Fatal("session was not evicted")
		}
	}
	cancel()
	<-done
	assert.Equal(t, 1, total)
}
