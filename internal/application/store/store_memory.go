package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"readykids/internal/application/models"
	"readykids/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in process memory. It mirrors the
// PostgreSQL store closely enough for handler and service tests, including
// all-or-nothing transactions.
type InMemoryStore struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	seq         int64
	nextEventID int64
	apps        map[string]*models.Application
	timelines   map[string][]*models.TimelineEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		apps:      make(map[string]*models.Application),
		timelines: make(map[string][]*models.TimelineEvent),
	}
}

// RunInTx serializes transactions and restores the previous state when fn
// fails. The sequence is not rolled back, as with a Postgres sequence.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	apps := make(map[string]*models.Application, len(s.apps))
	for k, v := range s.apps {
		apps[k] = v
	}
	timelines := make(map[string][]*models.TimelineEvent, len(s.timelines))
	for k, v := range s.timelines {
		timelines[k] = append([]*models.TimelineEvent(nil), v...)
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.apps = apps
		s.timelines = timelines
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *InMemoryStore) NextSequence(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *InMemoryStore) Insert(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = cloneApplication(app)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := make([]*models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		apps = append(apps, cloneApplication(app))
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID > apps[j].ID
	})
	return apps, nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, patch *models.Patch, now time.Time) (*models.Application, error) {
	if patch.IsEmpty() {
		return nil, sentinel.ErrNoChanges
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	app := cloneApplication(existing)
	patch.Apply(app, now)
	s.apps[id] = app
	return cloneApplication(app), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[id]; !ok {
		return false, nil
	}
	delete(s.apps, id)
	delete(s.timelines, id)
	return true, nil
}

func (s *InMemoryStore) AppendTimelineEvent(_ context.Context, event *models.TimelineEvent) (*models.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[event.ApplicationID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	s.nextEventID++
	stored := *event
	stored.ID = s.nextEventID
	s.timelines[event.ApplicationID] = append(s.timelines[event.ApplicationID], &stored)
	out := stored
	return &out, nil
}

func (s *InMemoryStore) ListTimeline(_ context.Context, applicationID string) ([]*models.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timelineLocked(applicationID), nil
}

func (s *InMemoryStore) ListTimelines(_ context.Context, applicationIDs []string) (map[string][]*models.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]*models.TimelineEvent, len(applicationIDs))
	for _, id := range applicationIDs {
		if events := s.timelineLocked(id); len(events) > 0 {
			out[id] = events
		}
	}
	return out, nil
}

// TimelineCount reports how many timeline rows exist for an application,
// including orphans a real cascade would have removed.
func (s *InMemoryStore) TimelineCount(applicationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timelines[applicationID])
}

func (s *InMemoryStore) timelineLocked(applicationID string) []*models.TimelineEvent {
	events := make([]*models.TimelineEvent, 0, len(s.timelines[applicationID]))
	for _, e := range s.timelines[applicationID] {
		c := *e
		events = append(events, &c)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

// cloneApplication deep-copies through the JSON-typed fields so callers
// cannot mutate stored state.
func cloneApplication(app *models.Application) *models.Application {
	c := *app
	if app.Checks != nil {
		c.Checks = cloneVia(app.Checks)
	}
	if app.ConnectedPersons != nil {
		c.ConnectedPersons = cloneVia(app.ConnectedPersons)
	}
	if app.Registers != nil {
		c.Registers = append([]string{}, app.Registers...)
	}
	if app.PremisesDetails != nil {
		d := *app.PremisesDetails
		c.PremisesDetails = &d
	}
	return &c
}

func cloneVia[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
