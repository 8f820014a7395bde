package models

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"leading zero stripped", "09123456789", "9123456789", false},
		{"already normalized", "9123456789", "9123456789", false},
		{"separators removed", "0912-345 6789", "9123456789", false},
		{"too short", "0912345", "", true},
		{"too long", "091234567890", "", true},
		{"landline prefix", "02146833010", "", true},
		{"empty", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("expected ErrInvalidPhone, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	for _, c := range valid {
		if !IsValidCode(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	invalid := []string{"", "12345", "1234567", "12a456", "12 456"}
	for _, c := range invalid {
		if IsValidCode(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

// completePersonal returns a PersonalInfo that passes the personal-details guard.
func completePersonal() PersonalInfo {
	return PersonalInfo{
		FullName:          "Ali Rezaei",
		Phone:             "9123456789",
		PhoneVerified:     true,
		NationalID:        "0012345678",
		BirthDate:         "1370/01/01",
		Gender:            GenderMale,
		City:              "Tehran",
		HasBasicInsurance: AnswerNo,
	}
}

func TestIntakeCompleteNoPrescription(t *testing.T) {
	d := NewRequestDraft()
	if err := d.IntakeComplete(); !errors.Is(err, ErrNoPrescriptionPath) {
		t.Fatalf("expected ErrNoPrescriptionPath, got %v", err)
	}

	d.PrescriptionPath = PathNoPrescription
	if err := d.IntakeComplete(); !errors.Is(err, ErrNoPackageSelected) {
		t.Fatalf("expected ErrNoPackageSelected, got %v", err)
	}

	d.SelectedPackage = &PackageRef{Category: "general", Index: 1, Title: "General checkup"}
	if err := d.IntakeComplete(); err != nil {
		t.Fatalf("expected guard to pass, got %v", err)
	}
}

func TestIntakeCompleteHasPrescriptionCollapsesPersonalGuard(t *testing.T) {
	d := NewRequestDraft()
	d.PrescriptionPath = PathHasPrescription
	if err := d.IntakeComplete(); !errors.Is(err, ErrMissingPrescription) {
		t.Fatalf("expected ErrMissingPrescription, got %v", err)
	}

	d.PrescriptionInfo.Type = PrescriptionElectronic
	d.PrescriptionInfo.ElectronicCode = "1234-5678-90"
	if err := d.IntakeComplete(); !errors.Is(err, ErrIncompletePersonalInfo) {
		t.Fatalf("expected ErrIncompletePersonalInfo, got %v", err)
	}

	d.PersonalInfo = completePersonal()
	if err := d.IntakeComplete(); err != nil {
		t.Fatalf("expected guard to pass, got %v", err)
	}
}

func TestPrescriptionPayloadComplete(t *testing.T) {
	d := NewRequestDraft()
	d.PrescriptionInfo.Type = PrescriptionPaper
	if err := d.PrescriptionPayloadComplete(); !errors.Is(err, ErrMissingPrescription) {
		t.Fatalf("expected ErrMissingPrescription for paper without files, got %v", err)
	}
	d.PrescriptionInfo.Files = []Attachment{{Name: "rx.jpg", Size: 1024}}
	if err := d.PrescriptionPayloadComplete(); err != nil {
		t.Fatalf("expected paper payload to be complete, got %v", err)
	}

	d.PrescriptionInfo = PrescriptionInfo{Type: PrescriptionElectronic, ElectronicCode: "   "}
	if err := d.PrescriptionPayloadComplete(); !errors.Is(err, ErrMissingPrescription) {
		t.Fatalf("expected blank electronic code to be rejected, got %v", err)
	}
}

func TestPersonalCompleteInsuranceBranch(t *testing.T) {
	d := NewRequestDraft()
	d.PersonalInfo = completePersonal()
	d.PersonalInfo.HasBasicInsurance = AnswerYes
	if err := d.PersonalComplete(); !errors.Is(err, ErrMissingInsuranceType) {
		t.Fatalf("expected ErrMissingInsuranceType, got %v", err)
	}
	d.PersonalInfo.BasicInsurance = "Tamin Ejtemaei"
	if err := d.PersonalComplete(); err != nil {
		t.Fatalf("expected guard to pass, got %v", err)
	}
}

func TestPersonalCompleteRequiresVerifiedPhone(t *testing.T) {
	d := NewRequestDraft()
	d.PersonalInfo = completePersonal()
	d.PersonalInfo.PhoneVerified = false
	if err := d.PersonalComplete(); !errors.Is(err, ErrPhoneNotVerified) {
		t.Fatalf("expected ErrPhoneNotVerified, got %v", err)
	}
}

func TestAddressComplete(t *testing.T) {
	d := NewRequestDraft()
	d.PersonalInfo = completePersonal()
	d.AddressInfo = AddressInfo{Neighborhood: "Shahrak", Street: "Imam St", Plaque: "12"}
	if err := d.AddressComplete(); !errors.Is(err, ErrMissingGeolocation) {
		t.Fatalf("expected ErrMissingGeolocation, got %v", err)
	}
	d.AddressInfo.Geolocation = &Location{Lat: 35.72, Lng: 51.10}
	if err := d.AddressComplete(); err != nil {
		t.Fatalf("expected guard to pass, got %v", err)
	}

	d.AddressInfo.Street = "   "
	if err := d.AddressComplete(); !errors.Is(err, ErrIncompleteAddress) {
		t.Fatalf("expected blank street to be rejected, got %v", err)
	}
}

func TestResetClearsDraft(t *testing.T) {
	d := NewRequestDraft()
	d.Step = 3
	d.PrescriptionPath = PathNoPrescription
	d.SelectedPackage = &PackageRef{Category: "women", Index: 0, Title: "PCOS panel"}
	d.PersonalInfo = completePersonal()

	d.Reset()

	if d.Step != 1 || d.PrescriptionPath != PathUnset || d.SelectedPackage != nil || d.PersonalInfo.FullName != "" {
		t.Errorf("draft not fully reset: %+v", d)
	}
}

func TestAPIResponseBuilders(t *testing.T) {
	resp := Error("something broke")
	if resp.Status != string(APIStatusError) || resp.Message != "something broke" {
		t.Errorf("unexpected error response: %+v", resp)
	}
	ok := SuccessWithMessage("done", map[string]int{"id": 1})
	if ok.Status != string(APIStatusOK) || ok.Message != "done" || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}
}
