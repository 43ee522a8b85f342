package models

import "encoding/json"

// CheckStatus is the state of one item on the suitability checklist.
type CheckStatus string

const (
	CheckNotStarted CheckStatus = "not-started"
	CheckPending    CheckStatus = "pending"
	CheckComplete   CheckStatus = "complete"
)

// Checklist keys written at creation.
const (
	CheckDBS          = "dbs"
	CheckDBSUpdate    = "dbs_update"
	CheckLA           = "la_check"
	CheckOfsted       = "ofsted"
	CheckGPHealth     = "gp_health"
	CheckRef1         = "ref_1"
	CheckRef2         = "ref_2"
	CheckFirstAid     = "first_aid"
	CheckSafeguarding = "safeguarding"
	CheckFoodHygiene  = "food_hygiene"
	CheckInsurance    = "insurance"
)

// ChecklistKeys is the full applicant checklist in display order.
var ChecklistKeys = []string{
	CheckDBS,
	CheckDBSUpdate,
	CheckLA,
	CheckOfsted,
	CheckGPHealth,
	CheckRef1,
	CheckRef2,
	CheckFirstAid,
	CheckSafeguarding,
	CheckFoodHygiene,
	CheckInsurance,
}

// Check is one checklist item. Members not named here are kept in Extra and
// written back unchanged.
type Check struct {
	Status       CheckStatus `json:"status"`
	Date         *string     `json:"date"`
	Certificate  *string     `json:"certificate,omitempty"`
	Provider     *string     `json:"provider,omitempty"`
	Referee      *string     `json:"referee,omitempty"`
	Relationship *string     `json:"relationship,omitempty"`
	Details      *string     `json:"details,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var checkKeys = keySet("status", "date", "certificate", "provider", "referee", "relationship", "details")

type checkFields Check

func (c Check) MarshalJSON() ([]byte, error) {
	return mergeUnknown(checkFields(c), c.Extra)
}

func (c *Check) UnmarshalJSON(data []byte) error {
	var f checkFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := splitUnknown(data, checkKeys)
	if err != nil {
		return err
	}
	*c = Check(f)
	c.Extra = extra
	return nil
}

// Checks maps checklist keys to their state.
type Checks map[string]Check

// NotStartedChecks returns a checklist with every key in keys not started.
func NotStartedChecks(keys ...string) Checks {
	checks := make(Checks, len(keys))
	for _, k := range keys {
		checks[k] = Check{Status: CheckNotStarted}
	}
	return checks
}

// CountComplete returns how many checks are complete.
func (c Checks) CountComplete() int {
	n := 0
	for _, check := range c {
		if check.Status == CheckComplete {
			n++
		}
	}
	return n
}
