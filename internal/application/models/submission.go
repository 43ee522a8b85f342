package models

import "encoding/json"

// Submission is the registration form as posted by an applicant. Sections
// that are not objects are treated as absent, and oddly typed answers inside
// a section read as text or blank; the raw JSON of every section is kept for
// storage.
type Submission struct {
	Personal       Personal
	HomeAddress    *Address
	Premises       *Premises
	Service        *ServiceDetails
	Suitability    *Suitability
	Qualifications *Qualifications
	References     *References
	Household      *Household

	sections map[string]json.RawMessage
}

type Personal struct {
	Title       string `json:"title"`
	FirstName   string `json:"firstName"`
	MiddleNames string `json:"middleNames"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DOB         string `json:"dob"`
	Gender      string `json:"gender"`
	RightToWork string `json:"rightToWork"`
	NINumber    string `json:"niNumber"`
}

type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	Town     string `json:"town"`
	Postcode string `json:"postcode"`
}

func (a *Address) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*a = Address{
		Line1:    f.text("line1"),
		Line2:    f.text("line2"),
		Town:     f.text("town"),
		Postcode: f.text("postcode"),
	}
	return nil
}

// Premises keeps SameAsHome raw: only a literal false means the premises
// are elsewhere.
type Premises struct {
	Type           string          `json:"type"`
	SameAsHome     json.RawMessage `json:"sameAsHome"`
	Address        *Address        `json:"address"`
	OutdoorSpace   json.RawMessage `json:"outdoorSpace"`
	Pets           json.RawMessage `json:"pets"`
	PetsDetails    json.RawMessage `json:"petsDetails"`
	LocalAuthority string          `json:"localAuthority"`
}

func (p *Premises) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*p = Premises{
		Type:           f.text("type"),
		SameAsHome:     f.raw("sameAsHome"),
		Address:        decodeSection[Address](f["address"]),
		OutdoorSpace:   f.raw("outdoorSpace"),
		Pets:           f.raw("pets"),
		PetsDetails:    f.raw("petsDetails"),
		LocalAuthority: f.text("localAuthority"),
	}
	return nil
}

type ServiceDetails struct {
	AgeGroups []string `json:"ageGroups"`
}

func (s *ServiceDetails) UnmarshalJSON(data []byte) error {
	*s = ServiceDetails{AgeGroups: readFormFields(data).texts("ageGroups")}
	return nil
}

type Suitability struct {
	HasDBS    string `json:"hasDBS"`
	DBSNumber string `json:"dbsNumber"`
}

func (s *Suitability) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*s = Suitability{HasDBS: f.text("hasDBS"), DBSNumber: f.text("dbsNumber")}
	return nil
}

type Qualifications struct {
	FirstAidCompleted     string `json:"firstAidCompleted"`
	FirstAidDate          string `json:"firstAidDate"`
	FirstAidOrg           string `json:"firstAidOrg"`
	SafeguardingCompleted string `json:"safeguardingCompleted"`
	SafeguardingDate      string `json:"safeguardingDate"`
	SafeguardingOrg       string `json:"safeguardingOrg"`
	FoodHygieneCompleted  string `json:"foodHygieneCompleted"`
	FoodHygieneDate       string `json:"foodHygieneDate"`
	FoodHygieneOrg        string `json:"foodHygieneOrg"`
}

func (q *Qualifications) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*q = Qualifications{
		FirstAidCompleted:     f.text("firstAidCompleted"),
		FirstAidDate:          f.text("firstAidDate"),
		FirstAidOrg:           f.text("firstAidOrg"),
		SafeguardingCompleted: f.text("safeguardingCompleted"),
		SafeguardingDate:      f.text("safeguardingDate"),
		SafeguardingOrg:       f.text("safeguardingOrg"),
		FoodHygieneCompleted:  f.text("foodHygieneCompleted"),
		FoodHygieneDate:       f.text("foodHygieneDate"),
		FoodHygieneOrg:        f.text("foodHygieneOrg"),
	}
	return nil
}

type Referee struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

func (r *Referee) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*r = Referee{Name: f.text("name"), Relationship: f.text("relationship")}
	return nil
}

type References struct {
	Ref1 *Referee `json:"ref1"`
	Ref2 *Referee `json:"ref2"`
}

func (r *References) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*r = References{
		Ref1: decodeSection[Referee](f["ref1"]),
		Ref2: decodeSection[Referee](f["ref2"]),
	}
	return nil
}

// Household keeps one entry per submitted adult, in order. An adult that is
// not an object reads as blank so later adults keep their positions.
type Household struct {
	Adults []HouseholdAdult `json:"adults"`
}

func (h *Household) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	_ = json.Unmarshal(readFormFields(data)["adults"], &items)
	*h = Household{}
	for _, item := range items {
		var adult HouseholdAdult
		_ = adult.UnmarshalJSON(item)
		h.Adults = append(h.Adults, adult)
	}
	return nil
}

type HouseholdAdult struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Relationship string `json:"relationship"`
	DOB          string `json:"dob"`
}

func (a *HouseholdAdult) UnmarshalJSON(data []byte) error {
	f := readFormFields(data)
	*a = HouseholdAdult{
		FirstName:    f.text("firstName"),
		LastName:     f.text("lastName"),
		Relationship: f.text("relationship"),
		DOB:          f.text("dob"),
	}
	return nil
}

// Form section names.
const (
	SectionPersonal       = "personal"
	SectionHomeAddress    = "homeAddress"
	SectionPremises       = "premises"
	SectionService        = "service"
	SectionSuitability    = "suitability"
	SectionQualifications = "qualifications"
	SectionReferences     = "references"
	SectionHousehold      = "household"
	SectionPreviousNames  = "previousNames"
	SectionAddressHistory = "addressHistory"
	SectionEmployment     = "employment"
	SectionDeclaration    = "declaration"
)

func (s *Submission) UnmarshalJSON(data []byte) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return err
	}
	*s = Submission{sections: sections}
	if err := json.Unmarshal(orEmptyObject(sections[SectionPersonal]), &s.Personal); err != nil {
		return err
	}
	s.HomeAddress = decodeSection[Address](sections[SectionHomeAddress])
	s.Premises = decodeSection[Premises](sections[SectionPremises])
	s.Service = decodeSection[ServiceDetails](sections[SectionService])
	s.Suitability = decodeSection[Suitability](sections[SectionSuitability])
	s.Qualifications = decodeSection[Qualifications](sections[SectionQualifications])
	s.References = decodeSection[References](sections[SectionReferences])
	s.Household = decodeSection[Household](sections[SectionHousehold])
	return nil
}

// Section returns the raw JSON of a form section, or nil when it is absent
// or null.
func (s *Submission) Section(name string) json.RawMessage {
	raw := s.sections[name]
	if IsNullJSON(raw) {
		return nil
	}
	return raw
}

// SetSection replaces the raw JSON of a form section. Typed views are not
// refreshed.
func (s *Submission) SetSection(name string, raw json.RawMessage) {
	if s.sections == nil {
		s.sections = make(map[string]json.RawMessage)
	}
	s.sections[name] = raw
}

// decodeSection returns nil unless raw is a JSON object.
func decodeSection[T any](raw json.RawMessage) *T {
	if !isJSONObject(raw) {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if IsNullJSON(raw) {
		return json.RawMessage("{}")
	}
	return raw
}
