package builder

import (
	"strings"

	"readykids/internal/application/models"
)

// premisesTypeDomestic is the form's spelling; the stored type is lowercased.
const premisesTypeDomestic = "Domestic"

// BuildPremisesAddress joins the non-empty address lines with ", ". Premises
// of type "Domestic" (the default) use the home address unless sameAsHome is
// exactly false; any other type uses the premises address.
func BuildPremisesAddress(sub *models.Submission) string {
	var addr *models.Address
	if usesHomeAddress(sub.Premises) {
		addr = sub.HomeAddress
	} else if sub.Premises != nil {
		addr = sub.Premises.Address
	}
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Line1, addr.Line2, addr.Town, addr.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func usesHomeAddress(p *models.Premises) bool {
	if p == nil {
		return true
	}
	if p.Type != "" && p.Type != premisesTypeDomestic {
		return false
	}
	return !models.IsFalseJSON(p.SameAsHome)
}

// BuildPremisesDetails copies the premises answers, null where unanswered.
func BuildPremisesDetails(sub *models.Submission) *models.PremisesDetails {
	p := sub.Premises
	if p == nil {
		return &models.PremisesDetails{}
	}
	return &models.PremisesDetails{
		SameAsHome:   p.SameAsHome,
		OutdoorSpace: models.NullIfEmpty(p.OutdoorSpace),
		Pets:         models.NullIfEmpty(p.Pets),
		PetsDetails:  models.NullIfEmpty(p.PetsDetails),
	}
}
