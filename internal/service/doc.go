// Package service implements business logic for the patient registry.
//
// This package sits between the HTTP handlers and the repository layer. It
// normalizes and validates input, dispatches form submissions by mode, and
// publishes change events.
//
// # Services
//
// PatientService manages patient CRUD, whole-database export and import,
// and roster imports from JSON or YAML with merge or replace strategies.
//
// # Event System
//
// Every successful write publishes an Event on the EventBus. The server
// forwards events to connected admin panels via Server-Sent Events so other
// open panels refresh their table.
//
// # Design Principles
//
// - Services own validation; the repository trusts its input
// - Sentinel errors, wrapped with context, matched with errors.Is
// - Context-aware for cancellation
package service
