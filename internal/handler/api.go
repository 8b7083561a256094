package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"patientdesk/internal/codec"
	"patientdesk/internal/domain"
	"patientdesk/internal/repository"
	"patientdesk/internal/service"
)

// MaxUploadSize bounds imported database and roster files
const MaxUploadSize = 32 << 20

// Export file names offered to browsers
const (
	DatabaseFileName = "patients.sqlite"
	SQLiteMediaType  = "application/x-sqlite3"
	uploadFormField  = "database"
)

// ErrorResponse is the JSON body of every API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PatientRequest is the body of create and update calls
type PatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HealthResponse reports liveness and registry size
type HealthResponse struct {
	Status   string `json:"status"`
	Patients int    `json:"patients"`
}

// PatientHandler serves the JSON API
type PatientHandler struct {
	svc *service.PatientService
}

// NewPatientHandler creates a new API handler
func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

// Register mounts the API routes on mux
func (h *PatientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/patients", h.ListPatients)
	mux.HandleFunc("POST /api/patients", h.CreatePatient)
	mux.HandleFunc("GET /api/patients/{id}", h.GetPatient)
	mux.HandleFunc("PUT /api/patients/{id}", h.UpdatePatient)
	mux.HandleFunc("DELETE /api/patients/{id}", h.DeletePatient)

	mux.HandleFunc("GET /api/export/sqlite", h.ExportSQLite)
	mux.HandleFunc("GET /api/export/{format}", h.ExportRoster)
	mux.HandleFunc("POST /api/import/sqlite", h.ImportSQLite)
	mux.HandleFunc("POST /api/import/{format}", h.ImportRoster)

	mux.HandleFunc("GET /healthz", h.Health)
}

// ListPatients returns all patients, newest first, optionally filtered by ?q=
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.ListPatients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "Failed to list patients", err)
		return
	}
	if patients == nil {
		patients = []domain.Patient{}
	}
	writeJSON(w, patients, http.StatusOK)
}

// GetPatient returns a single patient
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get patient", err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// CreatePatient adds a patient
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.AddPatient(r.Context(), req.Name, req.Email)
	if err != nil {
		h.fail(w, r, "Failed to create patient", err)
		return
	}
	writeJSON(w, p, http.StatusCreated)
}

// UpdatePatient replaces a patient's name and email
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.UpdatePatient(r.Context(), id, req.Name, req.Email)
	if err != nil {
		h.fail(w, r, "Failed to update patient", err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// DeletePatient removes a patient
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePatient(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete patient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSQLite downloads the whole database as patients.sqlite
func (h *PatientHandler) ExportSQLite(w http.ResponseWriter, r *http.Request) {
	serveDatabase(w, r, h.svc, func(err error) {
		h.fail(w, r, "Failed to export database", err)
	})
}

// ExportRoster downloads all patients as JSON or YAML
func (h *PatientHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, "Unknown export format", err.Error(), http.StatusNotFound)
		return
	}

	patients, err := h.svc.ListPatients(r.Context(), "")
	if err != nil {
		h.fail(w, r, "Failed to export patients", err)
		return
	}

	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=patients.%s", c.Format()))
	if err := c.Export(patients, w); err != nil {
		// Headers are already out
		slog.Error("failed to write roster export", "format", c.Format(), "error", err)
	}
}

// ImportSQLite replaces the registry with the patients in an uploaded
// .sqlite file. The body may be the raw file or a multipart form with a
// "database" field.
func (h *PatientHandler) ImportSQLite(w http.ResponseWriter, r *http.Request) {
	body, err := openUpload(w, r)
	if err != nil {
		writeError(w, "Invalid upload", err.Error(), http.StatusBadRequest)
		return
	}
	defer body.Close()

	stats, err := h.svc.ImportDatabase(r.Context(), body)
	if err != nil {
		h.fail(w, r, "Failed to import database", err)
		return
	}
	writeJSON(w, stats, http.StatusOK)
}

// ImportRoster loads a JSON or YAML roster with ?strategy=merge|replace
func (h *PatientHandler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, "Unknown import format", err.Error(), http.StatusNotFound)
		return
	}

	strategy, err := service.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		h.fail(w, r, "Invalid strategy", err)
		return
	}

	patients, err := c.Parse(http.MaxBytesReader(w, r.Body, MaxUploadSize))
	if err != nil {
		writeError(w, "Failed to parse roster", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.ImportRoster(r.Context(), patients, strategy)
	if err != nil {
		h.fail(w, r, "Failed to import roster", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Health reports the number of stored patients
func (h *PatientHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.CountPatients(r.Context())
	if err != nil {
		h.fail(w, r, "Database unavailable", err)
		return
	}
	writeJSON(w, HealthResponse{Status: "ok", Patients: n}, http.StatusOK)
}

func (h *PatientHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	writeError(w, msg, err.Error(), status)
}

// statusFor maps service and domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrEmptyEmail),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, service.ErrNoSelection),
		errors.Is(err, service.ErrUnknownStrategy),
		errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, repository.ErrUnrecognizedDatabase):
		return http.StatusBadRequest
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// serveDatabase streams the database export. onErr runs only when nothing
// has been written yet.
func serveDatabase(w http.ResponseWriter, r *http.Request, svc *service.PatientService, onErr func(error)) {
	w.Header().Set("Content-Type", SQLiteMediaType)
	w.Header().Set("Content-Disposition", "attachment; filename="+DatabaseFileName)

	n, err := svc.ExportDatabase(r.Context(), w)
	if err == nil {
		return
	}
	if n > 0 {
		slog.Error("database export interrupted", "bytes", n, "error", err)
		return
	}
	w.Header().Del("Content-Type")
	w.Header().Del("Content-Disposition")
	onErr(err)
}

// openUpload returns the uploaded file from a multipart form field or the
// raw request body
func openUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	f, _, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, fmt.Errorf("missing %q file: %w", uploadFormField, err)
	}
	return f, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "Invalid patient ID", fmt.Sprintf("%q is not a positive integer", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON", "error", err)
	}
}

func writeError(w http.ResponseWriter, msg, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: msg, Details: details}, statusCode)
}
