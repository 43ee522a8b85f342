package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readykids/internal/application/models"
	"readykids/pkg/platform/sentinel"
)

func seedApplication(t *testing.T, s *InMemoryStore, id string, created time.Time) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), &models.Application{
		ID: id, FirstName: "Jane", LastName: "Doe", Stage: models.StageNew, CreatedAt: created,
		Checks: models.NotStartedChecks(models.CheckDBS),
	}))
	for _, e := range models.InitialTimeline(id, created) {
		_, err := s.AppendTimelineEvent(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestInMemoryStoreNextSequenceIsUniqueUnderConcurrency(t *testing.T) {
	s := NewInMemoryStore()
	const workers = 50

	var wg sync.WaitGroup
	seen := make(chan int64, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.NextSequence(context.Background())
			assert.NoError(t, err)
			seen <- seq
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for seq := range seen {
		unique[seq] = true
	}
	assert.Len(t, unique, workers)
}

func TestInMemoryStoreListNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	seedApplication(t, s, "RK-2026-00001", base)
	seedApplication(t, s, "RK-2026-00002", base.Add(time.Hour))

	apps, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "RK-2026-00002", apps[0].ID)
}

func TestInMemoryStoreDeleteCascadesTimeline(t *testing.T) {
	s := NewInMemoryStore()
	seedApplication(t, s, "RK-2026-00001", time.Now())
	require.Equal(t, 2, s.TimelineCount("RK-2026-00001"))

	existed, err := s.Delete(context.Background(), "RK-2026-00001")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Zero(t, s.TimelineCount("RK-2026-00001"))

	existed, err = s.Delete(context.Background(), "RK-2026-00001")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestInMemoryStoreUpdate(t *testing.T) {
	s := NewInMemoryStore()
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	seedApplication(t, s, "RK-2026-00001", created)

	_, err := s.Update(context.Background(), "RK-2026-00001", &models.Patch{}, created)
	assert.ErrorIs(t, err, sentinel.ErrNoChanges)

	var patch models.Patch
	patch.SetStage(models.StageReview)
	_, err = s.Update(context.Background(), "RK-2026-99999", &patch, created)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	now := created.Add(time.Hour)
	app, err := s.Update(context.Background(), "RK-2026-00001", &patch, now)
	require.NoError(t, err)
	assert.Equal(t, models.StageReview, app.Stage)
	assert.Equal(t, now, *app.LastUpdated)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	seedApplication(t, s, "RK-2026-00001", time.Now())

	app, err := s.FindByID(context.Background(), "RK-2026-00001")
	require.NoError(t, err)
	app.Checks[models.CheckDBS] = models.Check{Status: models.CheckComplete}

	again, err := s.FindByID(context.Background(), "RK-2026-00001")
	require.NoError(t, err)
	assert.Equal(t, models.CheckNotStarted, again.Checks[models.CheckDBS].Status)
}

func TestInMemoryStoreRunInTxRollsBack(t *testing.T) {
	s := NewInMemoryStore()
	cause := errors.New("timeline insert failed")

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Insert(ctx, &models.Application{ID: "RK-2026-00001", CreatedAt: time.Now()}))
		return cause
	})

	assert.ErrorIs(t, err, cause)
	_, err = s.FindByID(context.Background(), "RK-2026-00001")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreAppendToMissingApplication(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.AppendTimelineEvent(context.Background(), &models.TimelineEvent{ApplicationID: "RK-2026-00404", Event: "x"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
