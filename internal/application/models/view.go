package models

import (
	"encoding/json"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// ApplicationView is the dashboard representation of an application.
type ApplicationView struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	DOB                *string           `json:"dob"`
	NINumber           string            `json:"niNumber,omitempty"`
	Stage              Stage             `json:"stage"`
	StartDate          *string           `json:"startDate"`
	RegistrationDate   *string           `json:"registrationDate"`
	RegistrationNumber string            `json:"registrationNumber,omitempty"`
	LastUpdated        *string           `json:"lastUpdated"`
	DaysInStage        int               `json:"daysInStage"`
	Risk               string            `json:"risk"`
	Progress           int               `json:"progress"`
	PremisesType       string            `json:"premisesType"`
	PremisesAddress    string            `json:"premisesAddress"`
	PremisesDetails    *PremisesDetails  `json:"premisesDetails,omitempty"`
	LocalAuthority     string            `json:"localAuthority"`
	Registers          []string          `json:"registers"`
	Service            json.RawMessage   `json:"service,omitempty"`
	Checks             Checks            `json:"checks"`
	ConnectedPersons   []ConnectedPerson `json:"connectedPersons"`
	OfstedCheck        json.RawMessage   `json:"ofstedCheck,omitempty"`
	Household          json.RawMessage   `json:"household,omitempty"`
	Timeline           []TimelineEntry   `json:"timeline"`
}

// TimelineEntry is a timeline event as shown on the dashboard.
type TimelineEntry struct {
	Date  string       `json:"date"`
	Event string       `json:"event"`
	Type  TimelineType `json:"type"`
}

// NewView shapes app and its timeline (oldest first) for the dashboard.
// Timestamps are rendered in the server's local time zone, calendar dates
// (dob, registrationDate) as stored; the timeline is returned newest first.
func NewView(app *Application, timeline []*TimelineEvent, now time.Time) *ApplicationView {
	v := &ApplicationView{
		ID:                 app.ID,
		Name:               app.Name(),
		Email:              app.Email,
		Phone:              app.Phone,
		DOB:                formatCalendarDate(app.DOB),
		NINumber:           app.NINumber,
		Stage:              app.Stage,
		StartDate:          formatDate(app.StartDate),
		RegistrationDate:   formatCalendarDate(app.RegistrationDate),
		RegistrationNumber: app.RegistrationNumber,
		LastUpdated:        formatDate(app.LastUpdated),
		DaysInStage:        daysSince(app.LastUpdated, now),
		Risk:               app.Risk,
		Progress:           app.Progress,
		PremisesType:       app.PremisesType,
		PremisesAddress:    app.PremisesAddress,
		PremisesDetails:    app.PremisesDetails,
		LocalAuthority:     app.LocalAuthority,
		Registers:          app.Registers,
		Service:            nullToNil(app.Service),
		Checks:             app.Checks,
		ConnectedPersons:   app.ConnectedPersons,
		OfstedCheck:        nullToNil(app.OfstedCheck),
		Household:          nullToNil(app.Household),
		Timeline:           make([]TimelineEntry, len(timeline)),
	}
	if v.Registers == nil {
		v.Registers = []string{}
	}
	if v.Checks == nil {
		v.Checks = Checks{}
	}
	if v.ConnectedPersons == nil {
		v.ConnectedPersons = []ConnectedPerson{}
	}
	for i, e := range timeline {
		v.Timeline[len(timeline)-1-i] = TimelineEntry{
			Date:  e.CreatedAt.Local().Format(dateTimeLayout),
			Event: e.Event,
			Type:  e.Type,
		}
	}
	return v
}

// formatDate renders the local date of an instant.
func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Local().Format(dateLayout)
	return &s
}

// formatCalendarDate renders a date-only value. Those are held as UTC
// midnight, so no zone conversion applies.
func formatCalendarDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}

// daysSince counts whole days from t to now, never negative. A missing t
// counts as now.
func daysSince(t *time.Time, now time.Time) int {
	if t == nil {
		return 0
	}
	days := int(now.Sub(*t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if IsNullJSON(raw) {
		return nil
	}
	return raw
}
