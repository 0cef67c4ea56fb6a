// Package store persists intake sessions.
//
// Error contract, shared by every implementation:
//   - FindByID and Delete return ErrNotFound when the session does not exist
//   - Create returns ErrExists when the ID is taken
//   - Save returns ErrConflict when the stored Version differs from the
//     session's, and bumps session.Version on success
//   - other failures are wrapped infrastructure errors
//
// Implementations hand out and keep copies; callers never share a
// *models.Session with the store.
package store

import "errors"

var (
	ErrNotFound = errors.New("intake session not found")
	ErrExists   = errors.New("intake session already exists")
	ErrConflict = errors.New("intake session was modified concurrently")
)
