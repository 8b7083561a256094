// Package handler implements the HTTP surface of patientdesk.
//
// # Admin panel
//
// AdminHandler renders a single server-side page with the patient table and
// a form that works in CREATE or EDIT mode. Every mutating request answers
// with a 303 redirect back to the page carrying a toast key, so a reload
// never resubmits the form.
//
// # JSON API
//
// PatientHandler exposes CRUD under /api/patients, database and roster
// export/import under /api/export and /api/import, and /healthz.
//
// Errors are returned as JSON with {error, details}. Validation failures map
// to 400 and missing patients to 404.
//
// # Middleware
//
// Chain composes RequestID, Recover, CORS and Logger around the mux.
package handler
