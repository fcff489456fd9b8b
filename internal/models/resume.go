package models

import "encoding/json"

// Resume is the validated, normalized resume document. Atomic fields are
// pointers without omitempty so missing data serializes as an explicit
// null; nested sections carry omitempty so empty structures stay omitted.
// The normalizer in internal/schema guarantees this shape before a Resume
// is ever constructed.
type Resume struct {
	PersonalInformation *PersonalInformation `json:"personal_information,omitempty" firestore:"personalInformation,omitempty"`
	EducationDetails    []Education          `json:"education_details,omitempty" firestore:"educationDetails,omitempty"`
	ExperienceDetails   []Experience         `json:"experience_details,omitempty" firestore:"experienceDetails,omitempty"`
	Projects            []Project            `json:"projects,omitempty" firestore:"projects,omitempty"`
	Achievements        []Achievement        `json:"achievements,omitempty" firestore:"achievements,omitempty"`
	Certifications      []Certification      `json:"certifications,omitempty" firestore:"certifications,omitempty"`
	Languages           []Language           `json:"languages,omitempty" firestore:"languages,omitempty"`
	Interests           []string             `json:"interests,omitempty" firestore:"interests,omitempty"`
	Availability        *Availability        `json:"availability,omitempty" firestore:"availability,omitempty"`
	SalaryExpectations  *SalaryExpectations  `json:"salary_expectations,omitempty" firestore:"salaryExpectations,omitempty"`
	SelfIdentification  *SelfIdentification  `json:"self_identification,omitempty" firestore:"selfIdentification,omitempty"`
	LegalAuthorization  *LegalAuthorization  `json:"legal_authorization,omitempty" firestore:"legalAuthorization,omitempty"`
	WorkPreferences     *WorkPreferences     `json:"work_preferences,omitempty" firestore:"workPreferences,omitempty"`
}

type PersonalInformation struct {
	Name        *string `json:"name" firestore:"name"`
	Surname     *string `json:"surname" firestore:"surname"`
	DateOfBirth *string `json:"date_of_birth" firestore:"dateOfBirth"`
	Country     *string `json:"country" firestore:"country"`
	City        *string `json:"city" firestore:"city"`
	Address     *string `json:"address" firestore:"address"`
	ZipCode     *string `json:"zip_code" firestore:"zipCode"`
	PhonePrefix *string `json:"phone_prefix" firestore:"phonePrefix"`
	Phone       *string `json:"phone" firestore:"phone"`
	Email       *string `json:"email" firestore:"email"`
	GitHub      *string `json:"github" firestore:"github"`
	LinkedIn    *string `json:"linkedin" firestore:"linkedin"`
}

type Education struct {
	EducationLevel       *string           `json:"education_level" firestore:"educationLevel"`
	Institution          *string           `json:"institution" firestore:"institution"`
	FieldOfStudy         *string           `json:"field_of_study" firestore:"fieldOfStudy"`
	FinalEvaluationGrade *string           `json:"final_evaluation_grade" firestore:"finalEvaluationGrade"`
	StartDate            *string           `json:"start_date" firestore:"startDate"`
	YearOfCompletion     *string           `json:"year_of_completion" firestore:"yearOfCompletion"`
	Exam                 map[string]string `json:"exam,omitempty" firestore:"exam,omitempty"`
}

type Experience struct {
	Position            *string  `json:"position" firestore:"position"`
	Company             *string  `json:"company" firestore:"company"`
	EmploymentPeriod    *string  `json:"employment_period" firestore:"employmentPeriod"`
	Location            *string  `json:"location" firestore:"location"`
	Industry            *string  `json:"industry" firestore:"industry"`
	KeyResponsibilities []string `json:"key_responsibilities,omitempty" firestore:"keyResponsibilities,omitempty"`
	SkillsAcquired      []string `json:"skills_acquired,omitempty" firestore:"skillsAcquired,omitempty"`
	Links               []string `json:"links,omitempty" firestore:"links,omitempty"`
}

type Project struct {
	Name        *string `json:"name" firestore:"name"`
	Description *string `json:"description" firestore:"description"`
	Link        *string `json:"link" firestore:"link"`
}

type Achievement struct {
	Name        *string `json:"name" firestore:"name"`
	Description *string `json:"description" firestore:"description"`
}

type Certification struct {
	Name        *string `json:"name" firestore:"name"`
	Description *string `json:"description" firestore:"description"`
}

type Language struct {
	Language    *string `json:"language" firestore:"language"`
	Proficiency *string `json:"proficiency" firestore:"proficiency"`
}

type Availability struct {
	NoticePeriod *string `json:"notice_period" firestore:"noticePeriod"`
}

type SalaryExpectations struct {
	SalaryRangeUSD *string `json:"salary_range_usd" firestore:"salaryRangeUsd"`
}

// SelfIdentification and LegalAuthorization answers are "Yes"/"No" strings
// or null, matching the extraction prompt contract.
type SelfIdentification struct {
	Gender           *string `json:"gender" firestore:"gender"`
	Pronouns         *string `json:"pronouns" firestore:"pronouns"`
	Veteran          *string `json:"veteran" firestore:"veteran"`
	Disability       *string `json:"disability" firestore:"disability"`
	Ethnicity        *string `json:"ethnicity" firestore:"ethnicity"`
	HispanicOrLatino *string `json:"hispanic_or_latino" firestore:"hispanicOrLatino"`
}

type LegalAuthorization struct {
	EUWorkAuthorization          *string `json:"eu_work_authorization" firestore:"euWorkAuthorization"`
	USWorkAuthorization          *string `json:"us_work_authorization" firestore:"usWorkAuthorization"`
	RequiresUSVisa               *string `json:"requires_us_visa" firestore:"requiresUsVisa"`
	LegallyAllowedToWorkInUS     *string `json:"legally_allowed_to_work_in_us" firestore:"legallyAllowedToWorkInUs"`
	RequiresUSSponsorship        *string `json:"requires_us_sponsorship" firestore:"requiresUsSponsorship"`
	RequiresEUVisa               *string `json:"requires_eu_visa" firestore:"requiresEuVisa"`
	LegallyAllowedToWorkInEU     *string `json:"legally_allowed_to_work_in_eu" firestore:"legallyAllowedToWorkInEu"`
	RequiresEUSponsorship        *string `json:"requires_eu_sponsorship" firestore:"requiresEuSponsorship"`
	CanadaWorkAuthorization      *string `json:"canada_work_authorization" firestore:"canadaWorkAuthorization"`
	RequiresCanadaVisa           *string `json:"requires_canada_visa" firestore:"requiresCanadaVisa"`
	LegallyAllowedToWorkInCanada *string `json:"legally_allowed_to_work_in_canada" firestore:"legallyAllowedToWorkInCanada"`
	RequiresCanadaSponsorship    *string `json:"requires_canada_sponsorship" firestore:"requiresCanadaSponsorship"`
	UKWorkAuthorization          *string `json:"uk_work_authorization" firestore:"ukWorkAuthorization"`
	RequiresUKVisa               *string `json:"requires_uk_visa" firestore:"requiresUkVisa"`
	LegallyAllowedToWorkInUK     *string `json:"legally_allowed_to_work_in_uk" firestore:"legallyAllowedToWorkInUk"`
	RequiresUKSponsorship        *string `json:"requires_uk_sponsorship" firestore:"requiresUkSponsorship"`
}

type WorkPreferences struct {
	RemoteWork                       *string `json:"remote_work" firestore:"remoteWork"`
	InPersonWork                     *string `json:"in_person_work" firestore:"inPersonWork"`
	OpenToRelocation                 *string `json:"open_to_relocation" firestore:"openToRelocation"`
	WillingToCompleteAssessments     *string `json:"willing_to_complete_assessments" firestore:"willingToCompleteAssessments"`
	WillingToUndergoDrugTests        *string `json:"willing_to_undergo_drug_tests" firestore:"willingToUndergoDrugTests"`
	WillingToUndergoBackgroundChecks *string `json:"willing_to_undergo_background_checks" firestore:"willingToUndergoBackgroundChecks"`
}

// ResumeFromMap decodes a normalized document into the typed form.
func ResumeFromMap(doc map[string]any) (*Resume, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var r Resume
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
