package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"readykids/internal/application/models"
	"readykids/pkg/platform/sentinel"
	txcontext "readykids/pkg/platform/tx"
)

// foreignKeyViolation is the Postgres SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

const applicationColumns = `id, title, first_name, middle_names, last_name, email, phone, dob, gender,
	right_to_work, ni_number, home_address, premises_type, premises_address, premises_details,
	local_authority, registers, service, stage, risk, progress, checks, connected_persons,
	ofsted_check, previous_names, address_history, qualifications, employment_history,
	references_data, household, suitability, declaration, start_date, registration_date,
	registration_number, last_updated, created_at`

const timelineColumns = `id, application_id, event, type, created_at`

// PostgresStore persists applications and their timelines in PostgreSQL.
// Every method joins the transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// NextSequence draws the next value of application_id_seq.
func (s *PostgresStore) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT nextval('application_id_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("draw application sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) Insert(ctx context.Context, app *models.Application) error {
	if app == nil {
		return fmt.Errorf("application is required")
	}
	checks, err := jsonValue(app.Checks)
	if err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}
	persons, err := jsonValue(app.ConnectedPersons)
	if err != nil {
		return fmt.Errorf("encode connected persons: %w", err)
	}
	details, err := jsonValue(app.PremisesDetails)
	if err != nil {
		return fmt.Errorf("encode premises details: %w", err)
	}
	regs := app.Registers
	if regs == nil {
		regs = []string{}
	}
	registers, err := jsonValue(regs)
	if err != nil {
		return fmt.Errorf("encode registers: %w", err)
	}

	placeholders := make([]string, 37)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := `INSERT INTO applications (` + applicationColumns + `) VALUES (` + strings.Join(placeholders, ", ") + `)`

	_, err = s.execer(ctx).ExecContext(ctx, query,
		app.ID,
		nullString(app.Title),
		app.FirstName,
		nullString(app.MiddleNames),
		app.LastName,
		app.Email,
		nullString(app.Phone),
		nullTime(app.DOB),
		nullString(app.Gender),
		nullString(app.RightToWork),
		nullString(app.NINumber),
		rawValue(app.HomeAddress),
		app.PremisesType,
		nullString(app.PremisesAddress),
		details,
		nullString(app.LocalAuthority),
		registers,
		rawValue(app.Service),
		string(app.Stage),
		app.Risk,
		app.Progress,
		checks,
		persons,
		rawValue(app.OfstedCheck),
		rawValue(app.PreviousNames),
		rawValue(app.AddressHistory),
		rawValue(app.Qualifications),
		rawValue(app.EmploymentHistory),
		rawValue(app.ReferencesData),
		rawValue(app.Household),
		rawValue(app.Suitability),
		rawValue(app.Declaration),
		nullTime(app.StartDate),
		nullTime(app.RegistrationDate),
		nullString(app.RegistrationNumber),
		nullTime(app.LastUpdated),
		app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

// List returns every application, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Application, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Update writes the patched fields and stamps last_updated. An empty patch
// writes nothing and reports sentinel.ErrNoChanges; an unknown id reports
// sentinel.ErrNotFound.
func (s *PostgresStore) Update(ctx context.Context, id string, patch *models.Patch, now time.Time) (*models.Application, error) {
	if patch.IsEmpty() {
		return nil, sentinel.ErrNoChanges
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, f := range patch.Fields() {
		switch f {
		case models.FieldStage:
			set("stage", string(patch.Stage))
		case models.FieldRisk:
			set("risk", patch.Risk)
		case models.FieldProgress:
			set("progress", patch.Progress)
		case models.FieldChecks:
			v, err := jsonValue(patch.Checks)
			if err != nil {
				return nil, fmt.Errorf("encode checks: %w", err)
			}
			set("checks", v)
		case models.FieldConnectedPersons:
			v, err := jsonValue(patch.ConnectedPersons)
			if err != nil {
				return nil, fmt.Errorf("encode connected persons: %w", err)
			}
			set("connected_persons", v)
		case models.FieldOfstedCheck:
			set("ofsted_check", rawValue(patch.OfstedCheck))
		case models.FieldRegistrationDate:
			set("registration_date", nullTime(patch.RegistrationDate))
		case models.FieldRegistrationNumber:
			if patch.RegistrationNumber == nil {
				set("registration_number", nil)
			} else {
				set("registration_number", *patch.RegistrationNumber)
			}
		}
	}
	set("last_updated", now)
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE applications SET %s WHERE id = $%d RETURNING `+applicationColumns,
		strings.Join(sets, ", "), len(args))
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

// Delete removes the application; its timeline goes with it. It reports
// whether a row existed.
func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete application: %w", err)
	}
	return n > 0, nil
}

// AppendTimelineEvent inserts event and returns the stored row. A missing
// application reports sentinel.ErrNotFound.
func (s *PostgresStore) AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) (*models.TimelineEvent, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`INSERT INTO timeline_events (application_id, event, type, created_at) VALUES ($1, $2, $3, $4) RETURNING `+timelineColumns,
		event.ApplicationID, event.Event, string(event.Type), event.CreatedAt)
	stored, err := scanTimelineEvent(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return nil, fmt.Errorf("append timeline event: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("append timeline event: %w", err)
	}
	return stored, nil
}

// ListTimeline returns an application's timeline, oldest first.
func (s *PostgresStore) ListTimeline(ctx context.Context, applicationID string) ([]*models.TimelineEvent, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timeline_events WHERE application_id = $1 ORDER BY created_at ASC, id ASC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	defer rows.Close()
	return collectTimeline(rows)
}

// ListTimelines returns the timelines of several applications in one query,
// keyed by application id, each oldest first.
func (s *PostgresStore) ListTimelines(ctx context.Context, applicationIDs []string) (map[string][]*models.TimelineEvent, error) {
	out := make(map[string][]*models.TimelineEvent, len(applicationIDs))
	if len(applicationIDs) == 0 {
		return out, nil
	}
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timeline_events WHERE application_id = ANY($1) ORDER BY created_at ASC, id ASC`,
		pq.Array(applicationIDs))
	if err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	defer rows.Close()

	events, err := collectTimeline(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		out[e.ApplicationID] = append(out[e.ApplicationID], e)
	}
	return out, nil
}

func collectTimeline(rows *sql.Rows) ([]*models.TimelineEvent, error) {
	events := []*models.TimelineEvent{}
	for rows.Next() {
		e, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimelineEvent(row scanner) (*models.TimelineEvent, error) {
	var (
		e   models.TimelineEvent
		typ string
	)
	if err := row.Scan(&e.ID, &e.ApplicationID, &e.Event, &typ, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = models.TimelineType(typ)
	return &e, nil
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app                                            models.Application
		title, middle, phone, gender, rightToWork, ni  sql.NullString
		premisesAddress, localAuthority, regNumber     sql.NullString
		dob, startDate, regDate, lastUpdated           sql.NullTime
		stage                                          string
		homeAddress, premisesDetails, registers        []byte
		service, checks, persons, ofsted               []byte
		previousNames, addressHistory, qualifications  []byte
		employment, references, household, suitability []byte
		declaration                                    []byte
	)
	err := row.Scan(
		&app.ID, &title, &app.FirstName, &middle, &app.LastName, &app.Email, &phone, &dob, &gender,
		&rightToWork, &ni, &homeAddress, &app.PremisesType, &premisesAddress, &premisesDetails,
		&localAuthority, &registers, &service, &stage, &app.Risk, &app.Progress, &checks, &persons,
		&ofsted, &previousNames, &addressHistory, &qualifications, &employment,
		&references, &household, &suitability, &declaration, &startDate, &regDate,
		&regNumber, &lastUpdated, &app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Title = title.String
	app.MiddleNames = middle.String
	app.Phone = phone.String
	app.Gender = gender.String
	app.RightToWork = rightToWork.String
	app.NINumber = ni.String
	app.PremisesAddress = premisesAddress.String
	app.LocalAuthority = localAuthority.String
	app.RegistrationNumber = regNumber.String
	app.DOB = timePtr(dob)
	app.StartDate = timePtr(startDate)
	app.RegistrationDate = timePtr(regDate)
	app.LastUpdated = timePtr(lastUpdated)
	app.Stage = models.Stage(stage)

	app.HomeAddress = rawOrNil(homeAddress)
	app.Service = rawOrNil(service)
	app.OfstedCheck = rawOrNil(ofsted)
	app.PreviousNames = rawOrNil(previousNames)
	app.AddressHistory = rawOrNil(addressHistory)
	app.Qualifications = rawOrNil(qualifications)
	app.EmploymentHistory = rawOrNil(employment)
	app.ReferencesData = rawOrNil(references)
	app.Household = rawOrNil(household)
	app.Suitability = rawOrNil(suitability)
	app.Declaration = rawOrNil(declaration)

	if err := decodeJSON(premisesDetails, &app.PremisesDetails); err != nil {
		return nil, fmt.Errorf("decode premises details: %w", err)
	}
	if err := decodeJSON(registers, &app.Registers); err != nil {
		return nil, fmt.Errorf("decode registers: %w", err)
	}
	if err := decodeJSON(checks, &app.Checks); err != nil {
		return nil, fmt.Errorf("decode checks: %w", err)
	}
	if err := decodeJSON(persons, &app.ConnectedPersons); err != nil {
		return nil, fmt.Errorf("decode connected persons: %w", err)
	}
	return &app, nil
}

func decodeJSON(raw []byte, v any) error {
	if models.IsNullJSON(raw) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// jsonValue encodes v for a JSONB parameter. lib/pq sends []byte as bytea,
// so JSON goes over the wire as text.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if models.IsNullJSON(data) {
		return nil, nil
	}
	return string(data), nil
}

func rawValue(raw json.RawMessage) any {
	if models.IsNullJSON(raw) {
		return nil
	}
	return string(raw)
}

func rawOrNil(b []byte) json.RawMessage {
	if models.IsNullJSON(b) {
		return nil
	}
	return json.RawMessage(b)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
