package auth

// Status is the discriminant of the authentication state machine.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusMfaPending      Status = "mfa_pending"
	StatusAuthenticated   Status = "authenticated"
)

// State is the externally observable authentication state. It replaces the
// independently-toggled authed/mfaNeeded/enrolled booleans pattern with one
// value that cannot desynchronize.
type State struct {
	Status Status

	// MfaEnrolled is meaningful only while Status is StatusMfaPending: true
	// means the account already has an authenticator configured (plain
	// code-entry flow), false means enrollment (QR + secret) is needed first.
	MfaEnrolled bool

	// Reason carries the server-supplied failure message verbatim after a
	// rejected login or code verification.
	Reason string

	// LockedMinutes is the remaining lockout duration hint, set only when a
	// login attempt was rejected because the account is locked.
	LockedMinutes int
}

// MfaEnrollment is the payload returned when beginning MFA enrollment.
type MfaEnrollment struct {
	QR     string `json:"qr"`     // otpauth:// URL for QR rendering
	Secret string `json:"secret"` // base32 secret for manual entry
}
