package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"patientdesk/internal/domain"
	"patientdesk/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{
			"added": func(t time.Time) string { return humanize.Time(t) },
			"comma": func(n int) string { return humanize.Comma(int64(n)) },
		}).
		ParseFS(templateFS, "templates/index.html"),
)

// formView is the state of the create/edit form
type formView struct {
	Mode  domain.FormMode
	ID    int64
	Name  string
	Email string
}

type pageView struct {
	Patients      []domain.Patient
	Total         int
	Query         string
	Form          formView
	Toast         *domain.Toast
	ExportedToast domain.Toast
}

// AdminHandler serves the server-rendered admin panel
type AdminHandler struct {
	svc *service.PatientService
}

// NewAdminHandler creates a new admin panel handler
func NewAdminHandler(svc *service.PatientService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Register mounts the panel routes on mux
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /patients", h.Save)
	mux.HandleFunc("POST /patients/{id}/delete", h.Delete)
	mux.HandleFunc("GET /export/sqlite", h.Export)
	mux.HandleFunc("POST /import/sqlite", h.Import)
}

// Index renders the table and the form. ?edit={id} preloads the form in
// EDIT mode, ?toast={key} shows a notification and ?q= filters the table.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	view := pageView{
		Query: q.Get("q"),
		Form:  formView{Mode: domain.FormModeCreate},
	}
	view.ExportedToast, _ = domain.ToastFor(domain.ToastKeyExported)

	toastKey := q.Get("toast")

	if raw := q.Get("edit"); raw != "" {
		id, _ := strconv.ParseInt(raw, 10, 64)
		p, err := h.svc.GetPatient(ctx, id)
		switch {
		case err == nil:
			view.Form = formView{Mode: domain.FormModeEdit, ID: p.ID, Name: p.Name, Email: p.Email}
		case errors.Is(err, service.ErrPatientNotFound), errors.Is(err, domain.ErrInvalidID):
			// Stale selection: fall back to an empty form
		default:
			slog.Error("failed to load selected patient", "id", raw, "error", err)
			toastKey = domain.ToastKeyError
		}
	}

	patients, err := h.svc.ListPatients(ctx, view.Query)
	if err != nil {
		slog.Error("failed to list patients", "error", err, "request_id", RequestIDFrom(ctx))
		toastKey = domain.ToastKeyError
	}
	view.Patients = patients

	if total, err := h.svc.CountPatients(ctx); err == nil {
		view.Total = total
	}

	if t, ok := domain.ToastFor(toastKey); ok {
		view.Toast = &t
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, view); err != nil {
		slog.Error("failed to render admin page", "error", err)
	}
}

// Save handles the form submission in either mode
func (h *AdminHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "", domain.ToastKeyError)
		return
	}

	id, _ := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	req := service.SaveRequest{
		Mode:  domain.ParseFormMode(r.PostFormValue("mode")),
		ID:    id,
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	}

	res, err := h.svc.Save(r.Context(), req)
	if err != nil {
		slog.Warn("form save failed", "mode", req.Mode, "id", req.ID, "error", err)
		selection := ""
		if req.Mode.IsEdit() && req.ID > 0 && !errors.Is(err, service.ErrPatientNotFound) {
			selection = strconv.FormatInt(req.ID, 10)
		}
		redirect(w, r, selection, domain.ToastKeyError)
		return
	}

	redirect(w, r, "", res.ToastKey)
}

// Delete removes a patient. The form posts the current selection as "edit"
// so that editing another row survives the delete.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		redirect(w, r, "", domain.ToastKeyError)
		return
	}

	selection := r.PostFormValue("edit")
	if selection == strconv.FormatInt(id, 10) {
		selection = ""
	}

	if err := h.svc.DeletePatient(r.Context(), id); err != nil {
		slog.Warn("delete failed", "id", id, "error", err)
		redirect(w, r, selection, domain.ToastKeyError)
		return
	}

	redirect(w, r, selection, domain.ToastKeyDeleted)
}

// Export downloads patients.sqlite
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	serveDatabase(w, r, h.svc, func(err error) {
		slog.Error("failed to export database", "error", err)
		redirect(w, r, "", domain.ToastKeyError)
	})
}

// Import replaces the registry with an uploaded .sqlite file
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := openUpload(w, r)
	if err != nil {
		slog.Warn("invalid database upload", "error", err)
		redirect(w, r, "", domain.ToastKeyError)
		return
	}
	defer body.Close()

	if _, err := h.svc.ImportDatabase(r.Context(), body); err != nil {
		slog.Warn("database import failed", "error", err)
		redirect(w, r, "", domain.ToastKeyError)
		return
	}

	redirect(w, r, "", domain.ToastKeyImported)
}

func redirect(w http.ResponseWriter, r *http.Request, edit, toast string) {
	v := url.Values{}
	if edit != "" {
		v.Set("edit", edit)
	}
	if toast != "" {
		v.Set("toast", toast)
	}
	target := "/"
	if len(v) > 0 {
		target += "?" + v.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
