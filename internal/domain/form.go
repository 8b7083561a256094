package domain

import "strings"

// FormMode is the state of the admin form
type FormMode string

const (
	FormModeCreate FormMode = "CREATE"
	FormModeEdit   FormMode = "EDIT"
)

// ParseFormMode parses a form mode, defaulting to CREATE
func ParseFormMode(s string) FormMode {
	switch FormMode(strings.ToUpper(strings.TrimSpace(s))) {
	case FormModeEdit:
		return FormModeEdit
	default:
		return FormModeCreate
	}
}

// IsEdit reports whether the form is editing an existing patient
func (m FormMode) IsEdit() bool {
	return m == FormModeEdit
}

// ToastKind classifies a notification
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastInfo    ToastKind = "info"
	ToastError   ToastKind = "error"
)

// Toast is a short notification shown after an action
type Toast struct {
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
}

// Notification keys carried across redirects. The admin page resolves them
// to toasts with ToastFor.
const (
	ToastKeySaved    = "saved"
	ToastKeyUpdated  = "updated"
	ToastKeyDeleted  = "deleted"
	ToastKeyExported = "exported"
	ToastKeyImported = "imported"
	ToastKeyError    = "error"
)

var toasts = map[string]Toast{
	ToastKeySaved:    {Message: "Patient saved to SQLite", Kind: ToastSuccess},
	ToastKeyUpdated:  {Message: "SQL record updated", Kind: ToastInfo},
	ToastKeyDeleted:  {Message: "Record deleted", Kind: ToastError},
	ToastKeyExported: {Message: ".sqlite file generated", Kind: ToastInfo},
	ToastKeyImported: {Message: "Database imported", Kind: ToastInfo},
	ToastKeyError:    {Message: "Database error", Kind: ToastError},
}

// ToastFor returns the toast for a notification key
func ToastFor(key string) (Toast, bool) {
	t, ok := toasts[key]
	return t, ok
}
