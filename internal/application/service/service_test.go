package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"readykids/internal/application/models"
	"readykids/internal/application/service/mocks"
	"readykids/internal/application/store"
	dErrors "readykids/pkg/domain-errors"
	audit "readykids/pkg/platform/audit"
	auditmemory "readykids/pkg/platform/audit/store/memory"
	"readykids/pkg/platform/sentinel"
	txcontext "readykids/pkg/platform/tx"
	"readykids/pkg/requestcontext"
	"readykids/pkg/testutil"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func testContext() context.Context {
	return requestcontext.WithTime(context.Background(), fixedNow)
}

func janeDoe(t *testing.T) *models.Submission {
	t.Helper()
	var sub models.Submission
	require.NoError(t, json.Unmarshal([]byte(`{
		"personal": {"firstName": "Jane", "lastName": "Doe", "email": "jane@example.com"}
	}`), &sub))
	return &sub
}

type fixture struct {
	store     *mocks.MockStore
	tx        *mocks.MockTxRunner
	publisher *mocks.MockAuditPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:     mocks.NewMockStore(ctrl),
		tx:        mocks.NewMockTxRunner(ctrl),
		publisher: mocks.NewMockAuditPublisher(ctrl),
	}
	f.svc = New(f.store, f.tx, WithAuditPublisher(f.publisher))
	return f
}

// passThroughTx runs fn directly, as a transaction that always commits.
func (f *fixture) passThroughTx() {
	f.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func TestService_Create(t *testing.T) {
	testutil.Given(t, "a valid submission", func(t *testing.T) {
		f := newFixture(t)
		f.passThroughTx()

		var inserted *models.Application
		var timeline []*models.TimelineEvent
		f.store.EXPECT().NextSequence(gomock.Any()).Return(int64(42), nil)
		f.store.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, app *models.Application) error {
				inserted = app
				return nil
			})
		f.store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).Times(2).
			DoAndReturn(func(_ context.Context, e *models.TimelineEvent) (*models.TimelineEvent, error) {
				timeline = append(timeline, e)
				return e, nil
			})
		f.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e audit.Event) error {
				assert.Equal(t, string(audit.EventApplicationCreated), e.Action)
				assert.Equal(t, "RK-2026-00042", e.ApplicationID)
				assert.Equal(t, "new", e.Stage)
				return nil
			})

		id, err := f.svc.Create(testContext(), janeDoe(t))

		testutil.Then(t, "the id comes from the year and the sequence", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, "RK-2026-00042", id)
			require.NotNil(t, inserted)
			assert.Equal(t, id, inserted.ID)
			assert.Equal(t, models.StageNew, inserted.Stage)
		})

		testutil.Then(t, "the initial timeline is written one second apart", func(t *testing.T) {
			require.Len(t, timeline, 2)
			assert.Equal(t, models.EventApplicationStarted, timeline[0].Event)
			assert.Equal(t, models.EventApplicationSubmitted, timeline[1].Event)
			assert.Equal(t, fixedNow, timeline[0].CreatedAt)
			assert.Equal(t, fixedNow.Add(time.Second), timeline[1].CreatedAt)
		})
	})
}

func TestService_CreateFailsWhenTimelineInsertFails(t *testing.T) {
	f := newFixture(t)
	f.passThroughTx()

	cause := errors.New("disk full")
	f.store.EXPECT().NextSequence(gomock.Any()).Return(int64(1), nil)
	f.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	f.store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).Return(nil, cause)

	id, err := f.svc.Create(testContext(), janeDoe(t))

	require.Error(t, err)
	assert.Empty(t, id)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestService_CreateRollsBackOnPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nextval('application_id_seq')`)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO timeline_events`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	svc := New(store.NewPostgres(db), txcontext.NewRunner(db))
	_, err = svc.Create(testContext(), janeDoe(t))

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateUniqueIDsUnderConcurrency(t *testing.T) {
	mem := store.NewInMemoryStore()
	svc := New(mem, mem)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.Create(testContext(), janeDoe(t))
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	pattern := regexp.MustCompile(`^RK-\d{4}-\d{5}$`)
	for id := range ids {
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestService_Get(t *testing.T) {
	testutil.Given(t, "an unknown id", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().FindByID(gomock.Any(), "RK-2026-99999").Return(nil, sentinel.ErrNotFound)

		_, err := f.svc.Get(testContext(), "RK-2026-99999")

		testutil.Then(t, "it is reported as not found", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
			assert.EqualError(t, err, "Application not found")
		})
	})

	testutil.Given(t, "a stored application", func(t *testing.T) {
		f := newFixture(t)
		app := &models.Application{ID: "RK-2026-00001", FirstName: "Jane", LastName: "Doe", Stage: models.StageNew}
		f.store.EXPECT().FindByID(gomock.Any(), app.ID).Return(app, nil)
		f.store.EXPECT().ListTimeline(gomock.Any(), app.ID).Return(models.InitialTimeline(app.ID, fixedNow), nil)

		view, err := f.svc.Get(testContext(), app.ID)

		testutil.Then(t, "the timeline is newest first", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, "Jane Doe", view.Name)
			require.Len(t, view.Timeline, 2)
			assert.Equal(t, models.EventApplicationSubmitted, view.Timeline[0].Event)
			assert.Equal(t, models.EventApplicationStarted, view.Timeline[1].Event)
		})
	})

	testutil.Given(t, "a storage failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().FindByID(gomock.Any(), "RK-2026-00001").Return(nil, errors.New("connection refused"))

		_, err := f.svc.Get(testContext(), "RK-2026-00001")

		testutil.Then(t, "it is an internal error", func(t *testing.T) {
			assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
		})
	})
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	apps := []*models.Application{
		{ID: "RK-2026-00002", FirstName: "Ann", LastName: "Bee", Stage: models.StageReview},
		{ID: "RK-2026-00001", FirstName: "Jane", LastName: "Doe", Stage: models.StageNew},
	}
	f.store.EXPECT().List(gomock.Any()).Return(apps, nil)
	f.store.EXPECT().ListTimelines(gomock.Any(), []string{"RK-2026-00002", "RK-2026-00001"}).
		Return(map[string][]*models.TimelineEvent{
			"RK-2026-00001": models.InitialTimeline("RK-2026-00001", fixedNow),
		}, nil)

	views, err := f.svc.List(testContext())

	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "RK-2026-00002", views[0].ID)
	assert.Empty(t, views[0].Timeline)
	assert.NotNil(t, views[0].Timeline)
	assert.Len(t, views[1].Timeline, 2)
}

func TestService_Update(t *testing.T) {
	testutil.Given(t, "a patch with no recognized fields", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().Update(gomock.Any(), "RK-2026-00001", gomock.Any(), fixedNow).Return(nil, sentinel.ErrNoChanges)

		_, err := f.svc.Update(testContext(), "RK-2026-00001", &models.Patch{})

		testutil.Then(t, "it reads as not found", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
			assert.EqualError(t, err, "Application not found or no valid fields")
		})
	})

	testutil.Given(t, "a new checklist", func(t *testing.T) {
		f := newFixture(t)
		patch := &models.Patch{}
		patch.SetChecks(models.Checks{
			models.CheckDBS:      {Status: models.CheckComplete},
			models.CheckFirstAid: {Status: models.CheckNotStarted},
			models.CheckOfsted:   {Status: models.CheckPending},
		})
		updated := &models.Application{ID: "RK-2026-00001", Stage: models.StageChecks, Progress: 33}
		f.store.EXPECT().Update(gomock.Any(), "RK-2026-00001", gomock.Any(), fixedNow).
			DoAndReturn(func(_ context.Context, _ string, p *models.Patch, _ time.Time) (*models.Application, error) {
				assert.True(t, p.Has(models.FieldProgress))
				assert.Equal(t, 33, p.Progress)
				return updated, nil
			})
		f.store.EXPECT().ListTimeline(gomock.Any(), "RK-2026-00001").Return(nil, nil)
		f.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e audit.Event) error {
				assert.Equal(t, string(audit.EventApplicationUpdated), e.Action)
				assert.Equal(t, "checks,progress", e.Detail)
				return nil
			})

		view, err := f.svc.Update(testContext(), "RK-2026-00001", patch)

		testutil.Then(t, "progress is recomputed from it", func(t *testing.T) {
			require.NoError(t, err)
			assert.Equal(t, 33, view.Progress)
		})
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("missing application", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().Delete(gomock.Any(), "RK-2026-00001").Return(false, nil)

		err := f.svc.Delete(testContext(), "RK-2026-00001")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("existing application", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().Delete(gomock.Any(), "RK-2026-00001").Return(true, nil)
		f.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		assert.NoError(t, f.svc.Delete(testContext(), "RK-2026-00001"))
	})

	t.Run("publisher failure does not fail the delete", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().Delete(gomock.Any(), "RK-2026-00001").Return(true, nil)
		f.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		assert.NoError(t, f.svc.Delete(testContext(), "RK-2026-00001"))
	})
}

func TestService_AddTimelineEvent(t *testing.T) {
	t.Run("defaults the type to action", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e *models.TimelineEvent) (*models.TimelineEvent, error) {
				assert.Equal(t, models.TimelineAction, e.Type)
				assert.Equal(t, fixedNow, e.CreatedAt)
				stored := *e
				stored.ID = 9
				return &stored, nil
			})
		f.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		event, err := f.svc.AddTimelineEvent(testContext(), "RK-2026-00001", "Called applicant", "")
		require.NoError(t, err)
		assert.Equal(t, int64(9), event.ID)
	})

	t.Run("unknown application", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("append timeline event: %w", sentinel.ErrNotFound))

		_, err := f.svc.AddTimelineEvent(testContext(), "RK-2026-99999", "Called applicant", models.TimelineNote)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_EndToEndWithMemoryStores(t *testing.T) {
	mem := store.NewInMemoryStore()
	events := auditmemory.NewInMemoryStore()
	svc := New(mem, mem, WithAuditPublisher(publisherFunc(events.Append)))
	ctx := testContext()

	id, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	patch := &models.Patch{}
	patch.SetStage(models.StageChecks)
	view, err := svc.Update(ctx, id, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StageChecks, view.Stage)
	assert.Equal(t, 0, view.Progress)

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, 0, mem.TimelineCount(id))

	recorded, _ := events.ListByApplication(ctx, id)
	require.Len(t, recorded, 3)
	assert.Equal(t, string(audit.EventApplicationCreated), recorded[0].Action)
	assert.Equal(t, string(audit.EventApplicationUpdated), recorded[1].Action)
	assert.Equal(t, string(audit.EventApplicationDeleted), recorded[2].Action)
}

type publisherFunc func(ctx context.Context, e audit.Event) error

func (f publisherFunc) Emit(ctx context.Context, e audit.Event) error { return f(ctx, e) }
