package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	PremisesDomestic = "domestic"
	DefaultRisk      = "low"
)

// PremisesDetails summarises the childcare premises.
type PremisesDetails struct {
	SameAsHome   json.RawMessage `json:"sameAsHome"`
	OutdoorSpace json.RawMessage `json:"outdoorSpace"`
	Pets         json.RawMessage `json:"pets"`
	PetsDetails  json.RawMessage `json:"petsDetails"`
}

// Application is a persisted registration application. JSON sub-documents
// that the domain does not interpret are carried as raw JSON; nil means the
// column is NULL.
type Application struct {
	ID          string
	Title       string
	FirstName   string
	MiddleNames string
	LastName    string
	Email       string
	Phone       string
	DOB         *time.Time
	Gender      string
	RightToWork string
	NINumber    string

	HomeAddress     json.RawMessage
	PremisesType    string
	PremisesAddress string
	PremisesDetails *PremisesDetails
	LocalAuthority  string

	Registers        []string
	Service          json.RawMessage
	Stage            Stage
	Risk             string
	Progress         int
	Checks           Checks
	ConnectedPersons []ConnectedPerson
	OfstedCheck      json.RawMessage

	PreviousNames     json.RawMessage
	AddressHistory    json.RawMessage
	Qualifications    json.RawMessage
	EmploymentHistory json.RawMessage
	ReferencesData    json.RawMessage
	Household         json.RawMessage
	Suitability       json.RawMessage
	Declaration       json.RawMessage

	StartDate          *time.Time
	RegistrationDate   *time.Time
	RegistrationNumber string
	LastUpdated        *time.Time
	CreatedAt          time.Time
}

// Name is the applicant's display name.
func (a *Application) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// TimelineEvent is one entry in an application's audit trail.
type TimelineEvent struct {
	ID            int64        `json:"id"`
	ApplicationID string       `json:"application_id"`
	Event         string       `json:"event"`
	Type          TimelineType `json:"type"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Initial timeline entries written with every new application.
const (
	EventApplicationStarted   = "Application started"
	EventApplicationSubmitted = "Application form submitted"
)

// InitialTimeline returns the two entries recorded at creation, one second
// apart so they order deterministically.
func InitialTimeline(applicationID string, now time.Time) []*TimelineEvent {
	return []*TimelineEvent{
		{ApplicationID: applicationID, Event: EventApplicationStarted, Type: TimelineAction, CreatedAt: now},
		{ApplicationID: applicationID, Event: EventApplicationSubmitted, Type: TimelineComplete, CreatedAt: now.Add(time.Second)},
	}
}
