package builder

import (
	"fmt"

	"readykids/internal/application/models"
)

// BuildConnectedPersons lists one connected person per household adult with
// both names given. Ids use the adult's 1-based position among all adults,
// so a skipped adult still uses up its number.
func BuildConnectedPersons(sub *models.Submission) []models.ConnectedPerson {
	persons := []models.ConnectedPerson{}
	if sub.Household == nil {
		return persons
	}
	for i, adult := range sub.Household.Adults {
		if adult.FirstName == "" || adult.LastName == "" {
			continue
		}
		relationship := adult.Relationship
		if relationship == "" {
			relationship = models.DefaultRelationship
		}
		persons = append(persons, models.ConnectedPerson{
			ID:           fmt.Sprintf("CP-NEW-%03d", i+1),
			Name:         adult.FirstName + " " + adult.LastName,
			Type:         models.ConnectedPersonHousehold,
			Relationship: relationship,
			DOB:          optional(adult.DOB),
			FormStatus:   models.FormStatusNotStarted,
			FormType:     models.FormTypeHouseholdMember,
			Checks:       models.NotStartedChecks(models.CheckDBS, models.CheckLA),
		})
	}
	return persons
}
