package content

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/console"
)

// Form is the editor's submit payload. An absent ID means create, a present
// one means update. A blank slug is defaulted from the title at submit time.
type Form struct {
	ID        string
	Title     string
	Slug      string
	Excerpt   string
	Body      string // opaque HTML from the rich-text widget
	Published bool
}

// Editor is the create-or-update form behind the news and blog consoles.
// Saving surfaces the same MFA-required rerouting as row mutations.
type Editor struct {
	api  *api.Client
	path string
	auth console.AuthReporter
}

// NewEditor creates an editor for one content endpoint (NewsPath or
// BlogsPath).
func NewEditor(client *api.Client, path string, reporter console.AuthReporter) (*Editor, error) {
	if client == nil {
		return nil, errors.New("[content.NewEditor] api client is required")
	}
	if path == "" {
		return nil, errors.New("[content.NewEditor] content path is required")
	}
	if reporter == nil {
		return nil, errors.New("[content.NewEditor] auth reporter is required")
	}
	return &Editor{api: client, path: path, auth: reporter}, nil
}

// Save submits the form: POST for a new post, PATCH for an existing one. The
// saved record as echoed by the server is returned.
func (e *Editor) Save(ctx context.Context, form Form) (Post, error) {
	post := Post{
		ID:        form.ID,
		Title:     form.Title,
		Slug:      form.Slug,
		Excerpt:   form.Excerpt,
		Body:      form.Body,
		Published: form.Published,
	}
	if strings.TrimSpace(post.Slug) == "" {
		post.Slug = Slugify(post.Title)
	}

	method := http.MethodPost
	path := e.path
	if post.ID != "" {
		method = http.MethodPatch
		path = e.path + "/" + post.ID
	}

	var saved Post
	if err := e.api.Mutate(ctx, method, path, post, &saved); err != nil {
		switch {
		case api.IsMfaRequired(err):
			e.auth.RequireMfaMidSession()
		case api.IsUnauthorized(err):
			e.auth.SessionLost()
		}
		return Post{}, errors.Wrap(err, "[Editor.Save] submit")
	}
	return saved, nil
}
