package builder

import (
	"time"

	"readykids/internal/application/models"
)

const (
	answerYes = "Yes"

	detailsDBSProvided     = "Certificate number provided on application"
	detailsReferenceToSend = "Reference request to be sent"
)

// BuildChecks derives the initial checklist from the form. Every key starts
// not started; answers on the form can move individual checks forward.
// Missing or malformed sections leave their checks untouched. Checks the
// application itself starts are dated with today's UTC calendar date.
func BuildChecks(sub *models.Submission, today time.Time) models.Checks {
	checks := models.NotStartedChecks(models.ChecklistKeys...)
	date := today.UTC().Format(dateLayout)

	if s := sub.Suitability; s != nil && s.HasDBS == answerYes && s.DBSNumber != "" {
		checks[models.CheckDBS] = models.Check{
			Status:      models.CheckPending,
			Date:        strPtr(date),
			Certificate: strPtr(s.DBSNumber),
			Details:     strPtr(detailsDBSProvided),
		}
	}

	if q := sub.Qualifications; q != nil {
		qualification(checks, models.CheckFirstAid, q.FirstAidCompleted, q.FirstAidDate, q.FirstAidOrg)
		qualification(checks, models.CheckSafeguarding, q.SafeguardingCompleted, q.SafeguardingDate, q.SafeguardingOrg)
		qualification(checks, models.CheckFoodHygiene, q.FoodHygieneCompleted, q.FoodHygieneDate, q.FoodHygieneOrg)
	}

	if r := sub.References; r != nil {
		reference(checks, models.CheckRef1, r.Ref1, date)
		reference(checks, models.CheckRef2, r.Ref2, date)
	}

	return checks
}

func qualification(checks models.Checks, key, completed, date, provider string) {
	if completed != answerYes {
		return
	}
	checks[key] = models.Check{
		Status:   models.CheckComplete,
		Date:     optional(date),
		Provider: optional(provider),
	}
}

func reference(checks models.Checks, key string, ref *models.Referee, date string) {
	if ref == nil || ref.Name == "" {
		return
	}
	checks[key] = models.Check{
		Status:       models.CheckPending,
		Date:         strPtr(date),
		Referee:      strPtr(ref.Name),
		Relationship: optional(ref.Relationship),
		Details:      strPtr(detailsReferenceToSend),
	}
}
