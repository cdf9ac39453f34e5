// Package comments moderates public blog comments.
package comments

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ctrlcompliance/admin-console/console"
)

// Comment is one blog comment as served by /admin/blog-comments.
type Comment struct {
	ID        string     `json:"_id"`
	Slug      string     `json:"slug"` // blog post the comment belongs to
	Name      string     `json:"name"`
	Comment   string     `json:"comment"`
	Approved  bool       `json:"approved"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Resource describes the moderation console. The approved flag is the status
// filter; use SlugFilter to narrow to one post.
func Resource() console.Resource[Comment] {
	return console.Resource[Comment]{
		Name:        "comments",
		Path:        "/admin/blog-comments",
		StatusParam: "approved",
		ID:          func(c Comment) string { return c.ID },
		Columns:     []string{"_id", "createdAt", "slug", "name", "approved", "comment"},
		Row: func(c Comment) []string {
			return []string{
				c.ID,
				c.CreatedAt.UTC().Format(time.RFC3339),
				c.Slug,
				c.Name,
				strconv.FormatBool(c.Approved),
				c.Comment,
			}
		},
	}
}

// SlugFilter builds the extra-filter set narrowing the list to one post's
// comments. Pass it as QueryPatch.Extra; an empty slug clears the filter.
func SlugFilter(slug string) map[string]string {
	if slug == "" {
		return map[string]string{}
	}
	return map[string]string{"slug": slug}
}

type approvedPatch struct {
	Approved bool `json:"approved"`
}

// SetApproved approves or unapproves a comment.
func SetApproved(approved bool) console.Mutation {
	name := "unapprove"
	if approved {
		name = "approve"
	}
	return console.Mutation{Name: name, Method: http.MethodPatch, Body: approvedPatch{Approved: approved}}
}

// Delete removes a comment.
func Delete() console.Mutation {
	return console.Mutation{Name: "delete", Method: http.MethodDelete}
}
