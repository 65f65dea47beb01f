package repository

import "context"

// PreferenceRepository persists per-installation UI state outside the
// system of record. Currently holds only the last-selected gym (or the
// all-gyms sentinel) used to pre-seed the tenant resolver; its content is
// never treated as authoritative.
type PreferenceRepository interface {
	GetSelectedGym(ctx context.Context, installationID string) (string, error)
	SetSelectedGym(ctx context.Context, installationID, value string) error
}
