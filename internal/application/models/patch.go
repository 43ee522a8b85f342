package models

import (
	"encoding/json"
	"time"
)

// Field names an updatable application column.
type Field string

const (
	FieldStage              Field = "stage"
	FieldRisk               Field = "risk"
	FieldProgress           Field = "progress"
	FieldChecks             Field = "checks"
	FieldConnectedPersons   Field = "connected_persons"
	FieldOfstedCheck        Field = "ofsted_check"
	FieldRegistrationDate   Field = "registration_date"
	FieldRegistrationNumber Field = "registration_number"
)

// Patch is a partial update. Only fields marked through the setters are
// written; everything else is left untouched.
type Patch struct {
	Stage              Stage
	Risk               string
	Progress           int
	Checks             Checks
	ConnectedPersons   []ConnectedPerson
	OfstedCheck        json.RawMessage
	RegistrationDate   *time.Time
	RegistrationNumber *string

	fields []Field
}

func (p *Patch) mark(f Field) {
	if !p.Has(f) {
		p.fields = append(p.fields, f)
	}
}

// Has reports whether f is part of the patch.
func (p *Patch) Has(f Field) bool {
	for _, v := range p.fields {
		if v == f {
			return true
		}
	}
	return false
}

// Fields returns the set fields in the order they were first set.
func (p *Patch) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

func (p *Patch) IsEmpty() bool {
	return p == nil || len(p.fields) == 0
}

func (p *Patch) SetStage(s Stage) {
	p.Stage = s
	p.mark(FieldStage)
}

func (p *Patch) SetRisk(r string) {
	p.Risk = r
	p.mark(FieldRisk)
}

func (p *Patch) SetProgress(n int) {
	p.Progress = n
	p.mark(FieldProgress)
}

func (p *Patch) SetChecks(c Checks) {
	p.Checks = c
	p.mark(FieldChecks)
}

func (p *Patch) SetConnectedPersons(cp []ConnectedPerson) {
	if cp == nil {
		cp = []ConnectedPerson{}
	}
	p.ConnectedPersons = cp
	p.mark(FieldConnectedPersons)
}

func (p *Patch) SetOfstedCheck(raw json.RawMessage) {
	if IsNullJSON(raw) {
		raw = nil
	}
	p.OfstedCheck = raw
	p.mark(FieldOfstedCheck)
}

func (p *Patch) SetRegistrationDate(t *time.Time) {
	p.RegistrationDate = t
	p.mark(FieldRegistrationDate)
}

func (p *Patch) SetRegistrationNumber(n *string) {
	p.RegistrationNumber = n
	p.mark(FieldRegistrationNumber)
}

// Apply writes the patch onto app and bumps LastUpdated.
func (p *Patch) Apply(app *Application, now time.Time) {
	for _, f := range p.fields {
		switch f {
		case FieldStage:
			app.Stage = p.Stage
		case FieldRisk:
			app.Risk = p.Risk
		case FieldProgress:
			app.Progress = p.Progress
		case FieldChecks:
			app.Checks = p.Checks
		case FieldConnectedPersons:
			app.ConnectedPersons = p.ConnectedPersons
		case FieldOfstedCheck:
			app.OfstedCheck = p.OfstedCheck
		case FieldRegistrationDate:
			app.RegistrationDate = p.RegistrationDate
		case FieldRegistrationNumber:
			app.RegistrationNumber = ""
			if p.RegistrationNumber != nil {
				app.RegistrationNumber = *p.RegistrationNumber
			}
		}
	}
	app.LastUpdated = &now
}
