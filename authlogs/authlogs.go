// Package authlogs exposes the read-only login attempt audit trail.
package authlogs

import (
	"strconv"
	"time"

	"github.com/ctrlcompliance/admin-console/console"
)

// Entry is one recorded login attempt.
type Entry struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	Email     string    `json:"email"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"ua,omitempty"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"` // failure reason, "" on success
}

// Resource describes the audit console. There is no status filter and no
// mutations; the trail is append-only on the server.
func Resource() console.Resource[Entry] {
	return console.Resource[Entry]{
		Name:    "auth-logs",
		Path:    "/admin/auth-logs",
		ID:      func(e Entry) string { return e.ID },
		Columns: []string{"_id", "createdAt", "email", "success", "reason", "ip", "ua"},
		Row: func(e Entry) []string {
			return []string{
				e.ID,
				e.CreatedAt.UTC().Format(time.RFC3339),
				e.Email,
				strconv.FormatBool(e.Success),
				e.Reason,
				e.IP,
				e.UserAgent,
			}
		},
	}
}
