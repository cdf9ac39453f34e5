// Package devicetrust persists the opaque "remember this device" marker the
// backend hands out after a successful MFA verification. A valid marker lets
// a previously-verified browser/terminal skip repeated MFA challenges within
// the validity window.
package devicetrust

import "time"

// Validity is the marker lifetime. The backend also enforces this; the client
// treats anything past expiry as absent and never sends it.
const Validity = 14 * 24 * time.Hour

// Marker is the persisted trusted-device record. The value is opaque to the
// client.
type Marker struct {
	Value  string
	Expiry time.Time
}

// Expired reports whether the marker is past its validity window at now.
func (m Marker) Expired(now time.Time) bool {
	return !now.Before(m.Expiry)
}

// Store is the persistence capability for the marker. Implementations return
// (nil, nil) from Get when no marker is stored. Expiry filtering is the
// caller's job (it owns the clock).
type Store interface {
	Get() (*Marker, error)
	Set(m Marker) error
	Clear() error
}
