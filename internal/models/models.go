// Package models defines the core data structures for the SalamatLab home-sampling service.
//
// It includes the request draft assembled by the intake wizard, the payload variants
// submitted to the booking endpoints, and shared wire types used across modules.
package models

import (
	"errors"
	"regexp"
	"strings"
)

// PrescriptionPath selects which branch of the intake wizard applies.
type PrescriptionPath string

const (
	// PathUnset means the requester has not yet declared whether they hold a prescription.
	PathUnset PrescriptionPath = ""
	// PathHasPrescription routes through the prescription payload branch.
	PathHasPrescription PrescriptionPath = "yes"
	// PathNoPrescription routes through the checkup package catalog branch.
	PathNoPrescription PrescriptionPath = "no"
)

// PrescriptionType defines how a prescription is supplied.
type PrescriptionType string

const (
	PrescriptionUnset      PrescriptionType = ""
	PrescriptionElectronic PrescriptionType = "electronic"
	PrescriptionPaper      PrescriptionType = "paper"
)

// Gender is the requester's declared gender.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// YesNo is a tri-state answer used for insurance questions.
type YesNo string

const (
	AnswerUnset YesNo = ""
	AnswerYes   YesNo = "yes"
	AnswerNo    YesNo = "no"
)

// Validation constants shared across modules.
const (
	// PhoneDigits is the length of a normalized local mobile number.
	PhoneDigits = 10
	// CodeDigits is the length of a one-time verification code.
	CodeDigits = 6
	// MaxPrescriptionFiles bounds paper prescription uploads per request.
	MaxPrescriptionFiles = 10
)

// Error variables for better error handling and testability.
var (
	ErrInvalidPhone           = errors.New("phone must be a 10-digit local mobile number")
	ErrInvalidCode            = errors.New("verification code must be 6 digits")
	ErrCooldownActive         = errors.New("verification code cooldown is active")
	ErrCodeMismatch           = errors.New("verification code does not match")
	ErrPhoneNotVerified       = errors.New("phone number is not verified")
	ErrNoPrescriptionPath     = errors.New("prescription path is not selected")
	ErrNoPackageSelected      = errors.New("no checkup package selected")
	ErrMissingPrescription    = errors.New("prescription payload is incomplete")
	ErrIncompletePersonalInfo = errors.New("personal info is incomplete")
	ErrMissingInsuranceType   = errors.New("basic insurance type is required")
	ErrIncompleteAddress      = errors.New("address is incomplete")
	ErrMissingGeolocation     = errors.New("geolocation is not set")
	ErrFileTypeNotAllowed     = errors.New("file extension is not allowed")
	ErrFileTooLarge           = errors.New("file exceeds the maximum allowed size")
	ErrSubmissionInFlight     = errors.New("a submission is already in flight")
	ErrSubmissionFailed       = errors.New("submission failed")
)

// localMobileRegex matches a normalized 10-digit local mobile number (9xxxxxxxxx).
var localMobileRegex = regexp.MustCompile(`^9\d{9}$`)

// nonDigitRegex strips everything that is not a decimal digit.
var nonDigitRegex = regexp.MustCompile(`\D`)

// NormalizePhone canonicalizes a phone number the way the OTP service expects it:
// all non-digits removed and a single leading zero dropped. Returns ErrInvalidPhone
// when the result is not a 10-digit local mobile number.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(raw, "")
	digits = strings.TrimPrefix(digits, "0")
	if !localMobileRegex.MatchString(digits) {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// IsValidCode reports whether code is a 6-digit numeric verification code.
func IsValidCode(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Location is a geolocation pick from the map.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PersonalInfo holds the requester's identity and insurance details.
type PersonalInfo struct {
	FullName               string `json:"fullName"`
	Phone                  string `json:"phone"`
	PhoneVerified          bool   `json:"phoneVerified"`
	NationalID             string `json:"nationalCode"`
	BirthDate              string `json:"birthDate"`
	Gender                 Gender `json:"gender"`
	City                   string `json:"city"`
	HasBasicInsurance      YesNo  `json:"hasBasicInsurance"`
	BasicInsurance         string `json:"basicInsurance"`
	ComplementaryInsurance string `json:"complementaryInsurance,omitempty"`
}

// AddressInfo holds the sampling address and map pick.
type AddressInfo struct {
	Neighborhood string    `json:"neighborhood"`
	Street       string    `json:"street"`
	Plaque       string    `json:"plaque"`
	Unit         string    `json:"unit,omitempty"`
	Geolocation  *Location `json:"location,omitempty"`
}

// Attachment describes a locally selected prescription file before upload.
// Content is carried only until the upload collaborator turns it into a URL.
type Attachment struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content []byte `json:"-"`
}

// PrescriptionInfo holds the prescription payload for the has-prescription branch.
type PrescriptionInfo struct {
	Type           PrescriptionType `json:"prescriptionType"`
	ElectronicCode string           `json:"ePrescriptionCode,omitempty"`
	Files          []Attachment     `json:"files,omitempty"`
}

// PackageRef references one checkup package inside the static catalog.
type PackageRef struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	Title    string `json:"title"`
}

// RequestDraft is the aggregate request under construction by the wizard.
//
// It is created empty on workflow entry, mutated field by field, and reset to
// its empty state on successful submission or explicit cancellation.
type RequestDraft struct {
	Step             int              `json:"step"`
	PrescriptionPath PrescriptionPath `json:"hasPrescription"`
	SelectedPackage  *PackageRef      `json:"selectedPackage,omitempty"`
	PersonalInfo     PersonalInfo     `json:"personalInfo"`
	AddressInfo      AddressInfo      `json:"addressInfo"`
	PrescriptionInfo PrescriptionInfo `json:"prescriptionInfo"`
}

// NewRequestDraft returns an empty draft positioned on the first wizard step.
func NewRequestDraft() *RequestDraft {
	return &RequestDraft{Step: 1}
}

// Reset clears the draft back to its empty initial state.
func (d *RequestDraft) Reset() {
	*d = RequestDraft{Step: 1}
}

// PrescriptionPayloadComplete checks that the prescription branch carries its payload:
// a non-empty electronic code or at least one paper file, per the selected type.
func (d *RequestDraft) PrescriptionPayloadComplete() error {
	switch d.PrescriptionInfo.Type {
	case PrescriptionElectronic:
		if strings.TrimSpace(d.PrescriptionInfo.ElectronicCode) == "" {
			return ErrMissingPrescription
		}
		return nil
	case PrescriptionPaper:
		if len(d.PrescriptionInfo.Files) == 0 {
			return ErrMissingPrescription
		}
		return nil
	default:
		return ErrMissingPrescription
	}
}

// PersonalComplete checks the personal-details guard: every required field filled,
// the phone verified, and the basic insurance type selected when the requester
// answered yes to holding basic insurance.
func (d *RequestDraft) PersonalComplete() error {
	p := d.PersonalInfo
	if strings.TrimSpace(p.FullName) == "" || p.Phone == "" || p.NationalID == "" ||
		p.BirthDate == "" || p.Gender == GenderUnset || p.City == "" || p.HasBasicInsurance == AnswerUnset {
		return ErrIncompletePersonalInfo
	}
	if !p.PhoneVerified {
		return ErrPhoneNotVerified
	}
	if p.HasBasicInsurance == AnswerYes && p.BasicInsurance == "" {
		return ErrMissingInsuranceType
	}
	return nil
}

// IntakeComplete checks the first-step guard for whichever branch is selected.
// The has-prescription branch collapses the personal-details step into step one,
// so it requires the prescription payload and the full personal guard at once.
func (d *RequestDraft) IntakeComplete() error {
	switch d.PrescriptionPath {
	case PathNoPrescription:
		if d.SelectedPackage == nil {
			return ErrNoPackageSelected
		}
		return nil
	case PathHasPrescription:
		if err := d.PrescriptionPayloadComplete(); err != nil {
			return err
		}
		return d.PersonalComplete()
	default:
		return ErrNoPrescriptionPath
	}
}

// AddressComplete checks the final-step guard: address lines non-empty, a map pick
// present, and the phone still verified. The unit line is optional.
func (d *RequestDraft) AddressComplete() error {
	a := d.AddressInfo
	if strings.TrimSpace(a.Neighborhood) == "" || strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.Plaque) == "" {
		return ErrIncompleteAddress
	}
	if a.Geolocation == nil {
		return ErrMissingGeolocation
	}
	if !d.PersonalInfo.PhoneVerified {
		return ErrPhoneNotVerified
	}
	return nil
}

// SubmitReady re-checks everything the submission pipeline relies on before
// any network traffic, even after the wizard guards passed.
func (d *RequestDraft) SubmitReady() error {
	if err := d.IntakeComplete(); err != nil {
		return err
	}
	if d.PrescriptionPath == PathNoPrescription {
		if err := d.PersonalComplete(); err != nil {
			return err
		}
	}
	return d.AddressComplete()
}
