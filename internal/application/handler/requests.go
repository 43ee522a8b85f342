package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"readykids/internal/application/models"
	dErrors "readykids/pkg/domain-errors"
)

const (
	maxNameLength  = 200
	maxEmailLength = 254
	maxEventLength = 2000
	dateLayout     = "2006-01-02"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// decodeTree decodes arbitrary JSON keeping numbers exact.
func decodeTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// SubmissionRequest is the registration form body. It is kept as a generic
// JSON tree until validated so unknown sections survive untouched.
type SubmissionRequest struct {
	doc any
}

func (r *SubmissionRequest) UnmarshalJSON(data []byte) error {
	doc, err := decodeTree(data)
	if err != nil {
		return err
	}
	r.doc = doc
	return nil
}

func (r *SubmissionRequest) Normalize() {
	r.doc = trimTree(r.doc)
}

func (r *SubmissionRequest) Validate() error {
	if err := validateSubmissionShape(r.doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	sub, err := toSubmission(r.doc)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Invalid submission")
	}
	p := sub.Personal
	switch {
	case p.FirstName == "" || p.LastName == "" || p.Email == "":
		return dErrors.New(dErrors.CodeValidation, "First name, last name, and email are required")
	case utf8.RuneCountInString(p.FirstName) > maxNameLength:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("First name must be %d characters or fewer", maxNameLength))
	case utf8.RuneCountInString(p.LastName) > maxNameLength:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Last name must be %d characters or fewer", maxNameLength))
	case utf8.RuneCountInString(p.Email) > maxEmailLength:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Email must be %d characters or fewer", maxEmailLength))
	case !emailPattern.MatchString(p.Email):
		return dErrors.New(dErrors.CodeValidation, "Email address is invalid")
	}
	return nil
}

// Submission returns the validated form with every string HTML-escaped.
func (r *SubmissionRequest) Submission() (*models.Submission, error) {
	return toSubmission(escapeTree(r.doc))
}

func toSubmission(doc any) (*models.Submission, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var sub models.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// TimelineRequest is the body of POST /api/applications/{id}/timeline.
type TimelineRequest struct {
	Event string `json:"event"`
	Type  string `json:"type"`

	eventType models.TimelineType
}

func (r *TimelineRequest) Normalize() {
	r.Event = strings.TrimSpace(r.Event)
	r.Type = strings.TrimSpace(r.Type)
}

func (r *TimelineRequest) Validate() error {
	if r.Event == "" {
		return dErrors.New(dErrors.CodeValidation, "Event text is required")
	}
	if utf8.RuneCountInString(r.Event) > maxEventLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Event text must be %d characters or fewer", maxEventLength))
	}
	t, err := models.ParseTimelineType(r.Type)
	if err != nil {
		return err
	}
	r.eventType = t
	return nil
}

// EscapedEvent is the event text as stored.
func (r *TimelineRequest) EscapedEvent() string {
	return htmlEscaper.Replace(r.Event)
}

// UpdateRequest is a partial update. Only allow-listed keys are read; any
// other key is ignored.
type UpdateRequest struct {
	fields map[string]any
	patch  *models.Patch
}

func (r *UpdateRequest) UnmarshalJSON(data []byte) error {
	doc, err := decodeTree(data)
	if err != nil {
		return err
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("update body must be a JSON object")
	}
	r.fields = fields
	return nil
}

func (r *UpdateRequest) Normalize() {
	for k, v := range r.fields {
		r.fields[k] = escapeTree(trimTree(v))
	}
}

type fieldSetter func(p *models.Patch, v any) error

var updatable = map[string]fieldSetter{
	"stage":               setStage,
	"risk":                setRisk,
	"progress":            setProgress,
	"checks":              setChecks,
	"connected_persons":   setConnectedPersons,
	"connectedPersons":    setConnectedPersons,
	"ofsted_check":        setOfstedCheck,
	"ofstedCheck":         setOfstedCheck,
	"registration_date":   setRegistrationDate,
	"registrationDate":    setRegistrationDate,
	"registration_number": setRegistrationNumber,
	"registrationNumber":  setRegistrationNumber,
}

// Validate builds the patch. Keys are visited in sorted order, so when both
// spellings of a field are sent the snake_case one wins.
func (r *UpdateRequest) Validate() error {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		if _, ok := updatable[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	patch := &models.Patch{}
	for _, k := range keys {
		if err := updatable[k](patch, r.fields[k]); err != nil {
			return err
		}
	}
	r.patch = patch
	return nil
}

func (r *UpdateRequest) Patch() *models.Patch {
	return r.patch
}

func setStage(p *models.Patch, v any) error {
	s, _ := v.(string)
	stage, err := models.ParseStage(s)
	if err != nil {
		return err
	}
	p.SetStage(stage)
	return nil
}

func setRisk(p *models.Patch, v any) error {
	s, ok := v.(string)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "Risk must be a string")
	}
	p.SetRisk(s)
	return nil
}

func setProgress(p *models.Patch, v any) error {
	n, ok := v.(json.Number)
	if ok {
		if i, err := n.Int64(); err == nil && i >= 0 && i <= 100 {
			p.SetProgress(int(i))
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "Progress must be a whole number between 0 and 100")
}

func setChecks(p *models.Patch, v any) error {
	if _, ok := v.(map[string]any); !ok {
		return dErrors.New(dErrors.CodeValidation, "Checks must be an object")
	}
	var checks models.Checks
	if err := remarshal(v, &checks); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Checks are malformed")
	}
	p.SetChecks(checks)
	return nil
}

func setConnectedPersons(p *models.Patch, v any) error {
	if v == nil {
		p.SetConnectedPersons([]models.ConnectedPerson{})
		return nil
	}
	if _, ok := v.([]any); !ok {
		return dErrors.New(dErrors.CodeValidation, "Connected persons must be an array")
	}
	var persons []models.ConnectedPerson
	if err := remarshal(v, &persons); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Connected persons are malformed")
	}
	p.SetConnectedPersons(persons)
	return nil
}

func setOfstedCheck(p *models.Patch, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Ofsted check is malformed")
	}
	p.SetOfstedCheck(raw)
	return nil
}

func setRegistrationDate(p *models.Patch, v any) error {
	if v == nil {
		p.SetRegistrationDate(nil)
		return nil
	}
	s, _ := v.(string)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "Registration date must be a date in YYYY-MM-DD format")
	}
	p.SetRegistrationDate(&t)
	return nil
}

func setRegistrationNumber(p *models.Patch, v any) error {
	if v == nil {
		p.SetRegistrationNumber(nil)
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "Registration number must be a string")
	}
	p.SetRegistrationNumber(&s)
	return nil
}

func remarshal(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
