// Package adminusers manages the admin accounts able to sign in to the
// console.
package adminusers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/console"
)

const basePath = "/admin/users"

// User is one admin account as served by /admin/users.
type User struct {
	ID          string     `json:"_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role,omitempty"`
	Disabled    bool       `json:"disabled"`
	MfaEnrolled bool       `json:"mfaEnrolled"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Resource describes the admin-user console with the disabled/enabled status
// filter.
func Resource() console.Resource[User] {
	return console.Resource[User]{
		Name:        "users",
		Path:        basePath,
		StatusParam: "disabled",
		ID:          func(u User) string { return u.ID },
		Columns:     []string{"_id", "createdAt", "email", "name", "role", "disabled", "mfaEnrolled", "lastLoginAt"},
		Row: func(u User) []string {
			lastLogin := ""
			if u.LastLoginAt != nil {
				lastLogin = u.LastLoginAt.UTC().Format(time.RFC3339)
			}
			return []string{
				u.ID,
				u.CreatedAt.UTC().Format(time.RFC3339),
				u.Email,
				u.Name,
				u.Role,
				strconv.FormatBool(u.Disabled),
				strconv.FormatBool(u.MfaEnrolled),
				lastLogin,
			}
		},
	}
}

// NewUser is the creation payload for POST /admin/users.
type NewUser struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password"`
}

// Create adds a new admin account. Creation has no row id, so it goes through
// the API client directly rather than as a console mutation.
func Create(ctx context.Context, client *api.Client, user NewUser) (User, error) {
	var created User
	if err := client.Mutate(ctx, http.MethodPost, basePath, user, &created); err != nil {
		return User{}, errors.Wrap(err, "[adminusers.Create] POST")
	}
	return created, nil
}

type disabledPatch struct {
	Disabled bool `json:"disabled"`
}

// SetDisabled disables or re-enables an account.
func SetDisabled(disabled bool) console.Mutation {
	name := "enable"
	if disabled {
		name = "disable"
	}
	return console.Mutation{Name: name, Method: http.MethodPatch, Body: disabledPatch{Disabled: disabled}}
}

type passwordPatch struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password via the update endpoint.
func ResetPassword(newPassword string) console.Mutation {
	return console.Mutation{Name: "reset-password", Method: http.MethodPatch, Body: passwordPatch{Password: newPassword}}
}

// ResetMfa clears the account's authenticator, forcing re-enrollment on next
// login.
func ResetMfa() console.Mutation {
	return console.Mutation{Name: "reset-mfa", Method: http.MethodPost, Suffix: "/reset-mfa"}
}

// Delete removes the account.
func Delete() console.Mutation {
	return console.Mutation{Name: "delete", Method: http.MethodDelete}
}
