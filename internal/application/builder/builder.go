// Package builder turns a submitted registration form into a normalized
// application record. Everything here is pure; persistence happens in the
// service, which draws the id and writes the record in one transaction.
package builder

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"readykids/internal/application/models"
)

const dateLayout = "2006-01-02"

// GenerateID formats the human-readable application id, e.g. RK-2026-00042.
func GenerateID(year int, seq int64) string {
	return fmt.Sprintf("RK-%d-%05d", year, seq)
}

// CalculateProgress is the rounded percentage of complete checks, 0 for an
// empty checklist. Halves round up.
func CalculateProgress(checks models.Checks) int {
	if len(checks) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(checks.CountComplete()) / float64(len(checks))))
}

// Build assembles everything but the id. now becomes the start, created and
// last-updated time; its UTC date is the date recorded on checks the
// application itself initiates.
func Build(sub *models.Submission, now time.Time) *models.Application {
	p := sub.Personal
	checks := BuildChecks(sub, now)

	app := &models.Application{
		Title:       p.Title,
		FirstName:   p.FirstName,
		MiddleNames: p.MiddleNames,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		DOB:         parseDate(p.DOB),
		Gender:      p.Gender,
		RightToWork: p.RightToWork,
		NINumber:    p.NINumber,

		HomeAddress:     orEmptyObject(sub.Section(models.SectionHomeAddress)),
		PremisesType:    premisesType(sub),
		PremisesAddress: BuildPremisesAddress(sub),
		PremisesDetails: BuildPremisesDetails(sub),

		Registers:        []string{},
		Service:          sub.Section(models.SectionService),
		Stage:            models.StageNew,
		Risk:             models.DefaultRisk,
		Progress:         CalculateProgress(checks),
		Checks:           checks,
		ConnectedPersons: BuildConnectedPersons(sub),

		PreviousNames:     sub.Section(models.SectionPreviousNames),
		AddressHistory:    sub.Section(models.SectionAddressHistory),
		Qualifications:    sub.Section(models.SectionQualifications),
		EmploymentHistory: sub.Section(models.SectionEmployment),
		ReferencesData:    sub.Section(models.SectionReferences),
		Household:         sub.Section(models.SectionHousehold),
		Suitability:       sub.Section(models.SectionSuitability),
		Declaration:       sub.Section(models.SectionDeclaration),

		StartDate:   &now,
		LastUpdated: &now,
		CreatedAt:   now,
	}
	if sub.Premises != nil {
		app.LocalAuthority = sub.Premises.LocalAuthority
	}
	if sub.Service != nil && sub.Service.AgeGroups != nil {
		app.Registers = sub.Service.AgeGroups
	}
	return app
}

func premisesType(sub *models.Submission) string {
	if sub.Premises == nil || sub.Premises.Type == "" {
		return models.PremisesDomestic
	}
	return strings.ToLower(sub.Premises.Type)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return json.RawMessage("{}")
	}
	return raw
}

func strPtr(s string) *string {
	return &s
}

// optional maps "" to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
