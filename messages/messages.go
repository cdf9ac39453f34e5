// Package messages adapts the contact-enquiry inbox to the generic console.
package messages

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ctrlcompliance/admin-console/console"
)

// Message is one contact enquiry as served by /admin/messages.
type Message struct {
	ID        string     `json:"_id"`
	CreatedAt time.Time  `json:"createdAt"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Company   string     `json:"company,omitempty"`
	FleetSize string     `json:"fleetSize,omitempty"`
	Read      bool       `json:"read"`
	Message   string     `json:"message"`
	IP        string     `json:"ip,omitempty"`
	UserAgent string     `json:"ua,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Resource describes the enquiry inbox: read/unread status filter and the
// CSV column order the admin UI has always exported.
func Resource() console.Resource[Message] {
	return console.Resource[Message]{
		Name:        "messages",
		Path:        "/admin/messages",
		StatusParam: "read",
		ID:          func(m Message) string { return m.ID },
		Columns:     []string{"_id", "createdAt", "name", "email", "company", "fleetSize", "read", "message", "ip", "ua"},
		Row: func(m Message) []string {
			return []string{
				m.ID,
				m.CreatedAt.UTC().Format(time.RFC3339),
				m.Name,
				m.Email,
				m.Company,
				m.FleetSize,
				strconv.FormatBool(m.Read),
				m.Message,
				m.IP,
				m.UserAgent,
			}
		},
	}
}

type readPatch struct {
	Read bool `json:"read"`
}

// SetRead marks an enquiry read or unread.
func SetRead(read bool) console.Mutation {
	name := "mark-unread"
	if read {
		name = "mark-read"
	}
	return console.Mutation{Name: name, Method: http.MethodPatch, Body: readPatch{Read: read}}
}

// Delete soft-deletes an enquiry; it stays restorable.
func Delete() console.Mutation {
	return console.Mutation{Name: "delete", Method: http.MethodDelete}
}

// Restore undeletes a soft-deleted enquiry.
func Restore() console.Mutation {
	return console.Mutation{Name: "restore", Method: http.MethodPost, Suffix: "/restore"}
}
