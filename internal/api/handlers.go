// Package api provides HTTP handlers for the home-sampling backend endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/attachment"
	"github.com/mohammadamiw/salamatlab-sub001/internal/genai"
	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	"github.com/mohammadamiw/salamatlab-sub001/internal/util"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in memory.
const maxUploadMemory = 32 << 20

// otpRequest is the wire body of the OTP endpoint.
type otpRequest struct {
	Action string `json:"action"`
	Phone  string `json:"phone"`
	Code   string `json:"code,omitempty"`
}

// otpHandler dispatches and verifies one-time codes: POST {action, phone, code?}.
func (s *Server) otpHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.otpHandler: processing OTP request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.otpHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: "Invalid JSON format"})
		return
	}

	phone, err := models.NormalizePhone(req.Phone)
	if err != nil {
		slog.Warn("Server.otpHandler: invalid phone", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: err.Error()})
		return
	}

	switch req.Action {
	case "send":
		s.sendOTP(w, r, phone)
	case "verify":
		s.verifyOTP(w, r, phone, req.Code)
	default:
		slog.Warn("Server.otpHandler: unknown action", "action", req.Action)
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: "Unknown action"})
	}
}

func (s *Server) sendOTP(w http.ResponseWriter, r *http.Request, phone string) {
	code, err := util.GenerateOTPCode(models.CodeDigits)
	if err != nil {
		slog.Error("Server.sendOTP: code generation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.OTPResult{Error: "Failed to generate code"})
		return
	}

	record := models.OTPCode{
		Phone:     phone,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := s.st.SaveOTPCode(record); err != nil {
		slog.Error("Server.sendOTP: failed to store code", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.OTPResult{Error: "Failed to store code"})
		return
	}

	message := fmt.Sprintf("SalamatLab verification code: %s", code)
	if err := s.sender.SendSMS(r.Context(), phone, message); err != nil {
		slog.Error("Server.sendOTP: SMS delivery failed", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusInternalServerError, models.OTPResult{Error: "Failed to deliver code"})
		return
	}

	slog.Info("Server.sendOTP: verification code sent", "phone", phone)
	writeJSONResponse(w, http.StatusOK, models.OTPResult{Success: true})
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request, phone, code string) {
	if !models.IsValidCode(code) {
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: models.ErrInvalidCode.Error()})
		return
	}

	record, err := s.st.GetOTPCode(phone)
	if err != nil {
		slog.Error("Server.verifyOTP: failed to load code", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.OTPResult{Error: "Failed to check code"})
		return
	}
	if record == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: "No code requested for this phone"})
		return
	}
	if s.now().After(record.ExpiresAt) {
		s.st.DeleteOTPCode(phone)
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: "Code expired"})
		return
	}
	if record.Attempts >= MaxOTPAttempts {
		slog.Warn("Server.verifyOTP: attempt limit reached", "phone", phone)
		writeJSONResponse(w, http.StatusTooManyRequests, models.OTPResult{Error: "Too many attempts"})
		return
	}
	if record.Code != code {
		if err := s.st.IncrementOTPAttempts(phone); err != nil {
			slog.Error("Server.verifyOTP: failed to record attempt", "error", err)
		}
		writeJSONResponse(w, http.StatusBadRequest, models.OTPResult{Error: models.ErrCodeMismatch.Error()})
		return
	}

	if err := s.st.DeleteOTPCode(phone); err != nil {
		slog.Error("Server.verifyOTP: failed to consume code", "error", err)
	}
	slog.Info("Server.verifyOTP: phone verified", "phone", phone)
	writeJSONResponse(w, http.StatusOK, models.OTPResult{Success: true})
}

// bookingHandler persists a submission payload: POST SubmissionPayload.
// It is the fallback target of the submission pipeline.
func (s *Server) bookingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.bookingHandler: processing booking request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload models.SubmissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.bookingHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.BookingResult{Error: "Invalid JSON format"})
		return
	}
	if payload.Title == "" || payload.PersonalInfo.FullName == "" || payload.PersonalInfo.Phone == "" {
		slog.Warn("Server.bookingHandler: incomplete payload")
		writeJSONResponse(w, http.StatusBadRequest, models.BookingResult{Error: "Incomplete booking payload"})
		return
	}

	id, err := s.st.AddRequest(models.SamplingRequest{Payload: payload, CreatedAt: s.now().UTC()})
	if err != nil {
		slog.Error("Server.bookingHandler: failed to persist request", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.BookingResult{Error: "Failed to save booking"})
		return
	}

	slog.Info("Server.bookingHandler: booking saved", "id", id, "type", payload.Type)
	writeJSONResponse(w, http.StatusOK, models.BookingResult{Success: true, ID: id})
}

// requestsHandler lists persisted bookings: GET.
func (s *Server) requestsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.requestsHandler: processing list request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requests, err := s.st.GetRequests()
	if err != nil {
		slog.Error("Server.requestsHandler: failed to load requests", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load requests"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(requests))
}

// uploadHandler stores paper prescription files: POST multipart files[].
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.uploadHandler: processing upload", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		slog.Warn("Server.uploadHandler: failed to parse multipart form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid multipart form"))
		return
	}
	files := r.MultipartForm.File["files[]"]
	if len(files) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No files provided"))
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		slog.Error("Server.uploadHandler: failed to create upload directory", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store files"))
		return
	}

	var urls []string
	for _, header := range files {
		if err := attachment.Validate(header.Filename, header.Size, attachment.KindPrescription); err != nil {
			slog.Warn("Server.uploadHandler: file rejected", "name", header.Filename, "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}

		name := util.GenerateUploadID() + strings.ToLower(filepath.Ext(header.Filename))
		dst := filepath.Join(s.uploadDir, name)
		if err := saveUploadedFile(header, dst); err != nil {
			slog.Error("Server.uploadHandler: failed to store file", "name", header.Filename, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store files"))
			return
		}
		urls = append(urls, "/uploads/"+name)
	}

	slog.Info("Server.uploadHandler: files stored", "count", len(urls))
	writeJSONResponse(w, http.StatusOK, models.UploadResult{URLs: urls})
}

// saveUploadedFile copies one multipart file to dst.
func saveUploadedFile(header *multipart.FileHeader, dst string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// smsHandler relays a message through the configured sender: POST {to, message}.
// It requires the relay API key when one is configured.
func (s *Server) smsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.smsHandler: processing relay request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		slog.Warn("Server.smsHandler: unauthorized relay attempt")
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Unauthorized"))
		return
	}

	var req models.SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.smsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.To == "" || req.Message == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Recipient and message are required"))
		return
	}

	if err := s.sender.SendSMS(r.Context(), req.To, req.Message); err != nil {
		slog.Error("Server.smsHandler: delivery failed", "error", err, "to", req.To)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}

	slog.Info("Server.smsHandler: message relayed", "to", req.To)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message sent successfully", nil))
}

// authorized checks the relay credentials: Bearer token or x-api-key header.
// When no key is configured the relay is open (local development).
func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	if r.Header.Get("x-api-key") == s.apiKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ") == s.apiKey && auth != ""
}

// chatHandler answers visitor questions: POST {message, history?}.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ChatResult{Error: "Invalid JSON format"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.ChatResult{Error: "Message is required"})
		return
	}

	if s.assistant == nil {
		writeJSONResponse(w, http.StatusOK, models.ChatResult{Success: true, Message: genai.FallbackReply})
		return
	}

	history := make([]genai.Message, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, genai.Message{Role: genai.Role(turn.Role), Content: turn.Content})
	}

	reply, err := s.assistant.Reply(r.Context(), history, req.Message)
	if err != nil {
		slog.Warn("Server.chatHandler: assistant failed, serving fallback", "error", err)
		writeJSONResponse(w, http.StatusOK, models.ChatResult{Success: true, Message: genai.FallbackReply})
		return
	}
	writeJSONResponse(w, http.StatusOK, models.ChatResult{Success: true, Message: reply})
}

// healthHandler provides a health check endpoint for monitoring.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if requests, err := s.st.GetRequests(); err != nil {
		slog.Warn("Health check: failed to query store", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to query store"
		statusCode = http.StatusServiceUnavailable
	} else {
		healthData["request_count"] = len(requests)
	}

	writeJSONResponse(w, statusCode, healthData)
}
