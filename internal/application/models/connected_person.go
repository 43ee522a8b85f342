package models

import "encoding/json"

const (
	ConnectedPersonHousehold = "household"
	DefaultRelationship      = "Household member"
	FormTypeHouseholdMember  = "CMA-H2"
	FormStatusNotStarted     = "not-started"
)

// ConnectedPerson is an adult linked to the application who needs their own
// suitability checks.
type ConnectedPerson struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Relationship string  `json:"relationship"`
	DOB          *string `json:"dob"`
	FormStatus   string  `json:"formStatus"`
	FormType     string  `json:"formType"`
	Checks       Checks  `json:"checks"`

	Extra map[string]json.RawMessage `json:"-"`
}

var connectedPersonKeys = keySet("id", "name", "type", "relationship", "dob", "formStatus", "formType", "checks")

type connectedPersonFields ConnectedPerson

func (p ConnectedPerson) MarshalJSON() ([]byte, error) {
	return mergeUnknown(connectedPersonFields(p), p.Extra)
}

func (p *ConnectedPerson) UnmarshalJSON(data []byte) error {
	var f connectedPersonFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := splitUnknown(data, connectedPersonKeys)
	if err != nil {
		return err
	}
	*p = ConnectedPerson(f)
	p.Extra = extra
	return nil
}
