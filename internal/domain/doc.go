// Package domain defines the core types for the patient registry.
//
// # Core Types
//
// Patient is the only persisted entity: an auto-assigned identifier, a full
// name and an email address, plus bookkeeping timestamps.
//
// FormMode is the two-value state of the admin form. CREATE submits a new
// patient; EDIT submits changes to the patient currently selected.
//
// Toast is a short notification shown to the operator after an action.
//
// # Design Principles
//
// - No database or HTTP dependencies
// - Normalization happens before validation, never after
// - Sentinel errors so callers can map failures with errors.Is
package domain
