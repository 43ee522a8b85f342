package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"readykids/internal/application/models"
	"readykids/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = NewPostgres(db)
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func columnNames() []string {
	parts := strings.Split(applicationColumns, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func (s *PostgresStoreSuite) applicationRows(id string, stage models.Stage) *sqlmock.Rows {
	values := map[string]driver.Value{
		"id":                id,
		"first_name":        "Jane",
		"last_name":         "Doe",
		"email":             "jane@example.com",
		"dob":               time.Date(1990, 5, 6, 0, 0, 0, 0, time.UTC),
		"home_address":      []byte(`{"line1":"1 High St"}`),
		"premises_type":     "domestic",
		"premises_address":  "1 High St",
		"premises_details":  []byte(`{"sameAsHome":true,"outdoorSpace":null,"pets":null,"petsDetails":null}`),
		"registers":         []byte(`["0-5"]`),
		"service":           []byte(`null`),
		"stage":             string(stage),
		"risk":              "low",
		"progress":          int64(9),
		"checks":            []byte(`{"first_aid":{"status":"complete","date":null,"verifiedBy":"ops"}}`),
		"connected_persons": []byte(`[]`),
		"start_date":        s.now,
		"last_updated":      s.now,
		"created_at":        s.now,
	}
	cols := columnNames()
	row := make([]driver.Value, len(cols))
	for i, c := range cols {
		row[i] = values[c]
	}
	return sqlmock.NewRows(cols).AddRow(row...)
}

func (s *PostgresStoreSuite) TestNextSequence() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT nextval('application_id_seq')`)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	seq, err := s.store.NextSequence(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(42), seq)
}

func (s *PostgresStoreSuite) TestInsertSendsJSONAsText() {
	app := &models.Application{
		ID:           "RK-2026-00001",
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@example.com",
		HomeAddress:  json.RawMessage(`{}`),
		PremisesType: "domestic",
		Stage:        models.StageNew,
		Risk:         "low",
		Checks:       models.NotStartedChecks(models.CheckDBS),
		CreatedAt:    s.now,
	}
	args := make([]driver.Value, 37)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[0] = "RK-2026-00001"
	args[11] = `{}`
	args[16] = `[]`
	args[21] = `{"dbs":{"status":"not-started","date":null}}`
	args[22] = nil

	s.mock.ExpectExec(`INSERT INTO applications \(id, title, .*created_at\) VALUES \(\$1, .*\$37\)`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.store.Insert(context.Background(), app))
}

func (s *PostgresStoreSuite) TestFindByIDDecodesRow() {
	s.mock.ExpectQuery(`SELECT id, title, .* FROM applications WHERE id = \$1`).
		WithArgs("RK-2026-00001").
		WillReturnRows(s.applicationRows("RK-2026-00001", models.StageChecks))

	app, err := s.store.FindByID(context.Background(), "RK-2026-00001")
	s.Require().NoError(err)

	s.Equal(models.StageChecks, app.Stage)
	s.Equal("", app.Phone)
	s.Equal([]string{"0-5"}, app.Registers)
	s.Nil(app.Service)
	s.Nil(app.RegistrationDate)
	s.Require().NotNil(app.PremisesDetails)
	s.JSONEq("true", string(app.PremisesDetails.SameAsHome))
	s.Equal(models.CheckComplete, app.Checks[models.CheckFirstAid].Status)
	s.Contains(app.Checks[models.CheckFirstAid].Extra, "verifiedBy")
	s.Empty(app.ConnectedPersons)
}

func (s *PostgresStoreSuite) TestFindByIDNotFound() {
	s.mock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("RK-2026-99999").
		WillReturnError(sql.ErrNoRows)

	_, err := s.store.FindByID(context.Background(), "RK-2026-99999")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateEmptyPatchWritesNothing() {
	_, err := s.store.Update(context.Background(), "RK-2026-00001", &models.Patch{}, s.now)
	s.ErrorIs(err, sentinel.ErrNoChanges)
}

func (s *PostgresStoreSuite) TestUpdateStageOnly() {
	var patch models.Patch
	patch.SetStage(models.StageChecks)

	s.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE applications SET stage = $1, last_updated = $2 WHERE id = $3 RETURNING id, title`)).
		WithArgs("checks", s.now, "RK-2026-00001").
		WillReturnRows(s.applicationRows("RK-2026-00001", models.StageChecks))

	app, err := s.store.Update(context.Background(), "RK-2026-00001", &patch, s.now)
	s.Require().NoError(err)
	s.Equal(models.StageChecks, app.Stage)
}

func (s *PostgresStoreSuite) TestUpdateSerializesJSONFields() {
	var patch models.Patch
	patch.SetChecks(models.Checks{models.CheckDBS: {Status: models.CheckComplete}})
	patch.SetProgress(100)
	patch.SetOfstedCheck(json.RawMessage(`{"outcome":"clear"}`))
	patch.SetRegistrationNumber(nil)

	s.mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE applications SET checks = $1, progress = $2, ofsted_check = $3, registration_number = $4, last_updated = $5 WHERE id = $6`)).
		WithArgs(`{"dbs":{"status":"complete","date":null}}`, 100, `{"outcome":"clear"}`, nil, s.now, "RK-2026-00001").
		WillReturnRows(s.applicationRows("RK-2026-00001", models.StageChecks))

	_, err := s.store.Update(context.Background(), "RK-2026-00001", &patch, s.now)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestUpdateUnknownID() {
	var patch models.Patch
	patch.SetRisk("high")

	s.mock.ExpectQuery(`UPDATE applications SET risk = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := s.store.Update(context.Background(), "RK-2026-99999", &patch, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	s.mock.ExpectExec(`DELETE FROM applications WHERE id = \$1`).
		WithArgs("RK-2026-00001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`DELETE FROM applications WHERE id = \$1`).
		WithArgs("RK-2026-00001").
		WillReturnResult(sqlmock.NewResult(0, 0))

	existed, err := s.store.Delete(context.Background(), "RK-2026-00001")
	s.Require().NoError(err)
	s.True(existed)

	existed, err = s.store.Delete(context.Background(), "RK-2026-00001")
	s.Require().NoError(err)
	s.False(existed)
}

func (s *PostgresStoreSuite) TestAppendTimelineEvent() {
	event := &models.TimelineEvent{ApplicationID: "RK-2026-00001", Event: "DBS received", Type: models.TimelineComplete, CreatedAt: s.now}

	s.mock.ExpectQuery(`INSERT INTO timeline_events \(application_id, event, type, created_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING`).
		WithArgs("RK-2026-00001", "DBS received", "complete", s.now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "event", "type", "created_at"}).
			AddRow(int64(7), "RK-2026-00001", "DBS received", "complete", s.now))

	stored, err := s.store.AppendTimelineEvent(context.Background(), event)
	s.Require().NoError(err)
	s.Equal(int64(7), stored.ID)
	s.Equal(models.TimelineComplete, stored.Type)
}

func (s *PostgresStoreSuite) TestAppendTimelineEventMissingApplication() {
	s.mock.ExpectQuery(`INSERT INTO timeline_events`).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	_, err := s.store.AppendTimelineEvent(context.Background(), &models.TimelineEvent{ApplicationID: "RK-2026-99999", Event: "x", Type: models.TimelineNote, CreatedAt: s.now})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListTimelinesGroupsByApplication() {
	rows := sqlmock.NewRows([]string{"id", "application_id", "event", "type", "created_at"}).
		AddRow(int64(1), "RK-2026-00001", models.EventApplicationStarted, "action", s.now).
		AddRow(int64(3), "RK-2026-00002", models.EventApplicationStarted, "action", s.now).
		AddRow(int64(2), "RK-2026-00001", models.EventApplicationSubmitted, "complete", s.now.Add(time.Second))
	s.mock.ExpectQuery(`FROM timeline_events WHERE application_id = ANY\(\$1\) ORDER BY created_at ASC, id ASC`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := s.store.ListTimelines(context.Background(), []string{"RK-2026-00001", "RK-2026-00002"})
	s.Require().NoError(err)
	s.Require().Len(got["RK-2026-00001"], 2)
	s.Equal(models.EventApplicationSubmitted, got["RK-2026-00001"][1].Event)
	s.Len(got["RK-2026-00002"], 1)
}

func TestListTimelinesWithNoIDsSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	got, err := NewPostgres(db).ListTimelines(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWrapsDriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cause := errors.New("connection refused")
	mock.ExpectExec(`INSERT INTO applications`).WillReturnError(cause)

	err = NewPostgres(db).Insert(context.Background(), &models.Application{ID: "RK-2026-00001"})
	assert.ErrorIs(t, err, cause)
}
