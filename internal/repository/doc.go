// Package repository defines the data access interface for the patient registry.
//
// The actual implementation is in the sqlite subpackage.
//
// # Repository Interface
//
// The Repository interface covers CRUD over patients, a transactional bulk
// replace, and whole-database export and import as a .sqlite file.
//
// # SQLite Implementation
//
// The sqlite implementation keeps the registry in a single SQLite file
// opened with WAL journaling and a single connection. It handles:
//
// - CRUD operations for patients, newest first on listing
// - Consistent file exports via VACUUM INTO
// - Imports from files this server exported and from the legacy
//   browser layout (a Pacientes table with nombres and correo columns)
// - An optional snapshot slot rewritten after every write and used to
//   restore a missing database file on open
//
// # Schema
//
// The schema is created on open with CREATE TABLE IF NOT EXISTS. There are
// no migrations beyond that.
package repository
