// Package models defines submission payloads and outcomes for the booking pipeline.
package models

import "time"

// SubmissionType tags which payload variant a request carries.
type SubmissionType string

const (
	// SubmissionTypePackage is a catalog-based request built from a selected checkup package.
	SubmissionTypePackage SubmissionType = "package-based"
	// SubmissionTypePrescription is a prescription-based request carrying the prescription payload.
	SubmissionTypePrescription SubmissionType = "prescription-based"
)

// Endpoint identifies which submission target served a request.
type Endpoint string

const (
	EndpointPrimary  Endpoint = "primary"
	EndpointFallback Endpoint = "fallback"
)

// SubmissionPayload is the assembled request sent to the booking endpoints.
type SubmissionPayload struct {
	Type             SubmissionType   `json:"type"`
	Title            string           `json:"title"`
	SelectedPackage  *PackageRef      `json:"selectedPackage,omitempty"`
	PrescriptionType PrescriptionType `json:"prescriptionType,omitempty"`
	ElectronicCode   string           `json:"ePrescriptionCode,omitempty"`
	PrescriptionURLs []string         `json:"prescriptionFiles,omitempty"`
	PersonalInfo     PersonalInfo     `json:"personalInfo"`
	AddressInfo      AddressInfo      `json:"addressInfo"`
}

// SubmissionResult is the outcome of one submission attempt. It is created per
// attempt and reported to the user; it is not persisted.
type SubmissionResult struct {
	EndpointUsed  Endpoint `json:"endpointUsed"`
	Success       bool     `json:"success"`
	ServerMessage string   `json:"serverMessage,omitempty"`
}

// SamplingRequest is a booking request persisted by the local endpoint.
type SamplingRequest struct {
	ID        int64             `json:"id"`
	Payload   SubmissionPayload `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// OTPCode is a one-time verification code persisted by the OTP endpoint.
type OTPCode struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// BookingResult is the wire response of the local booking endpoint.
type BookingResult struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPResult is the wire response of the OTP endpoint.
type OTPResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UploadResult is the wire response of the file upload endpoint.
type UploadResult struct {
	URLs []string `json:"urls"`
}

// SMSRequest is the wire request of the SMS relay endpoint.
type SMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// ChatTurn is one prior message in the assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a visitor message for the lab assistant endpoint.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
}

// ChatResult is the assistant reply wire format.
type ChatResult struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
