package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// RegistrationStatus enumerates the review states of a registration.
type RegistrationStatus string

const (
	StatusPendente  RegistrationStatus = "PENDENTE"
	StatusAprovada  RegistrationStatus = "APROVADA"
	StatusReprovada RegistrationStatus = "REPROVADA"
	StatusRejeitada RegistrationStatus = "REJEITADA"
	StatusCancelada RegistrationStatus = "CANCELADA"
)

// ParseStatus normalizes s and reports whether it names a known status.
func ParseStatus(s string) (RegistrationStatus, bool) {
	st := RegistrationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPendente, StatusAprovada, StatusReprovada, StatusRejeitada, StatusCancelada:
		return st, true
	}
	return st, false
}

// Payment methods accepted on the registration form.
const (
	PaymentPix    = "pix"
	PaymentCartao = "cartao"
	PaymentCarne  = "carne"
)

// Registration lots.
const (
	Lote1 = "lote1"
	Lote2 = "lote2"
)

// DefaultDietaryRestriction is stored when the form leaves the field empty.
const DefaultDietaryRestriction = "Nenhuma"

var (
	genders             = []string{"masculino", "feminino"}
	yesNo               = []string{"sim", "nao"}
	lots                = []string{Lote1, Lote2}
	paymentMethods      = []string{PaymentPix, PaymentCartao, PaymentCarne}
	shirtSizes          = []string{"PP", "P", "M", "G", "GG", "XG"}
	dietaryRestrictions = []string{"Nenhuma", "Vegetariana", "Intolerância à lactose", "Intolerância ao glúten", "Outras"}
)

// Registration is a submitted camp enrollment.
type Registration struct {
	ID int64 `json:"id" db:"id"`

	FullName    string `json:"fullName" db:"full_name"`
	BirthDate   string `json:"birthDate" db:"birth_date"` // YYYY-MM-DD
	Age         int    `json:"age" db:"age"`
	Gender      string `json:"gender" db:"gender"`
	Phone       string `json:"phone" db:"phone"`
	Email       string `json:"email" db:"email"`
	Address     string `json:"address" db:"address"`
	SocialMedia string `json:"socialMedia" db:"social_media"`

	EmergencyContactName         string `json:"emergencyContactName" db:"emergency_contact_name"`
	EmergencyContactPhone        string `json:"emergencyContactPhone" db:"emergency_contact_phone"`
	EmergencyContactRelationship string `json:"emergencyContactRelationship" db:"emergency_contact_relationship"`

	IsLagoinhaMember      string `json:"isLagoinhaMember" db:"is_lagoinha_member"`
	ChurchName            string `json:"churchName" db:"church_name"`
	MinistryParticipation string `json:"ministryParticipation" db:"ministry_participation"`

	RegistrationLot string  `json:"registrationLot" db:"registration_lot"`
	PaymentMethod   string  `json:"paymentMethod" db:"payment_method"`
	PaymentProof    *string `json:"paymentProof,omitempty" db:"payment_proof"`
	CouponCode      *string `json:"couponCode,omitempty" db:"coupon_code"`

	ShirtSize          string  `json:"shirtSize" db:"shirt_size"`
	HasAllergy         string  `json:"hasAllergy" db:"has_allergy"`
	AllergyDetails     *string `json:"allergyDetails,omitempty" db:"allergy_details"`
	UsesMedication     *string `json:"usesMedication,omitempty" db:"uses_medication"`
	MedicationDetails  *string `json:"medicationDetails,omitempty" db:"medication_details"`
	DietaryRestriction string  `json:"dietaryRestriction" db:"dietary_restriction"`

	HasMinistryTest     string  `json:"hasMinistryTest" db:"has_ministry_test"`
	MinistryTestResults *string `json:"ministryTestResults,omitempty" db:"ministry_test_results"`
	PrayerRequest       string  `json:"prayerRequest" db:"prayer_request"`

	ImageAuthorization bool `json:"imageAuthorization" db:"image_authorization"`
	AnalysisAwareness  bool `json:"analysisAwareness" db:"analysis_awareness"`
	TermsAwareness     bool `json:"termsAwareness" db:"terms_awareness"`
	TruthDeclaration   bool `json:"truthDeclaration" db:"truth_declaration"`

	Status    RegistrationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" db:"updated_at"`
}

// ValidationError lists every field problem found on a registration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid registration: " + strings.Join(e.Problems, "; ")
}

// Normalize fills defaults for fields the form may leave empty.
func (r *Registration) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	if r.DietaryRestriction == "" {
		r.DietaryRestriction = DefaultDietaryRestriction
	}
	if r.Status == "" {
		r.Status = StatusPendente
	}
}

// Validate checks the registration against the form rules. It returns a
// *ValidationError describing every problem, or nil.
func (r *Registration) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len([]rune(strings.TrimSpace(r.FullName))) < 3 {
		add("fullName must have at least 3 characters")
	}
	if r.BirthDate == "" {
		add("birthDate is required")
	} else if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		add("birthDate must be YYYY-MM-DD")
	}
	if r.Age < 12 || r.Age > 100 {
		add("age must be between 12 and 100")
	}
	if !oneOf(r.Gender, genders) {
		add("gender must be one of %s", strings.Join(genders, ", "))
	}
	if strings.TrimSpace(r.Phone) == "" {
		add("phone is required")
	}
	if !ValidEmail(r.Email) {
		add("email is invalid")
	}
	if strings.TrimSpace(r.Address) == "" {
		add("address is required")
	}
	if strings.TrimSpace(r.EmergencyContactName) == "" || strings.TrimSpace(r.EmergencyContactPhone) == "" {
		add("emergency contact name and phone are required")
	}
	if !oneOf(r.IsLagoinhaMember, yesNo) {
		add("isLagoinhaMember must be sim or nao")
	}
	if !oneOf(r.RegistrationLot, lots) {
		add("registrationLot must be one of %s", strings.Join(lots, ", "))
	}
	if !oneOf(r.PaymentMethod, paymentMethods) {
		add("paymentMethod must be one of %s", strings.Join(paymentMethods, ", "))
	}
	if !oneOf(r.ShirtSize, shirtSizes) {
		add("shirtSize must be one of %s", strings.Join(shirtSizes, ", "))
	}
	if !oneOf(r.HasAllergy, yesNo) {
		add("hasAllergy must be sim or nao")
	}
	if r.UsesMedication != nil && !oneOf(*r.UsesMedication, yesNo) {
		add("usesMedication must be sim or nao")
	}
	if r.DietaryRestriction != "" && !oneOf(r.DietaryRestriction, dietaryRestrictions) {
		add("dietaryRestriction is not a known option")
	}
	if !oneOf(r.HasMinistryTest, yesNo) {
		add("hasMinistryTest must be sim or nao")
	}
	if r.Status != "" {
		if _, ok := ParseStatus(string(r.Status)); !ok {
			add("status %q is not valid", r.Status)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidEmail reports whether s is a bare, syntactically valid address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// RegistrationSummary is the trimmed view returned by email endpoints.
type RegistrationSummary struct {
	ID       int64              `json:"id"`
	FullName string             `json:"fullName"`
	Email    string             `json:"email"`
	Status   RegistrationStatus `json:"status,omitempty"`
}

// Summary returns the public summary of r.
func (r *Registration) Summary() RegistrationSummary {
	return RegistrationSummary{ID: r.ID, FullName: r.FullName, Email: r.Email, Status: r.Status}
}
