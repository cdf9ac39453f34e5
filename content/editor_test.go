package content_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/content"
)

type recordingReporter struct {
	mu          sync.Mutex
	mfaRequired int
	sessionLost int
}

func (r *recordingReporter) RequireMfaMidSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mfaRequired++
}

func (r *recordingReporter) SessionLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionLost++
}

type savedRequest struct {
	method string
	path   string
	post   content.Post
}

func setupEditor(t *testing.T, saveStatus int, saveBody string) (*recordingReporter, *content.Editor, *savedRequest) {
	t.Helper()

	var last savedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/csrf" {
			_, _ = w.Write([]byte(`{"csrf":"tok"}`))
			return
		}
		last.method = r.Method
		last.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&last.post)

		if saveStatus != 0 && saveStatus != 200 {
			w.WriteHeader(saveStatus)
			_, _ = w.Write([]byte(saveBody))
			return
		}
		_ = json.NewEncoder(w).Encode(last.post)
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)

	rep := &recordingReporter{}
	editor, err := content.NewEditor(client, content.NewsPath, rep)
	require.NoError(t, err)
	return rep, editor, &last
}

func TestSaveCreatesWhenIDAbsent(t *testing.T) {
	_, editor, last := setupEditor(t, 200, "")

	saved, err := editor.Save(context.Background(), content.Form{
		Title: "Q3 Compliance Update!",
		Body:  "<p>New DVSA guidance.</p>",
	})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, last.method)
	require.Equal(t, content.NewsPath, last.path)
	require.Equal(t, "q3-compliance-update", saved.Slug, "blank slug defaults to the slugified title")
}

func TestSaveUpdatesWhenIDPresent(t *testing.T) {
	_, editor, last := setupEditor(t, 200, "")

	_, err := editor.Save(context.Background(), content.Form{
		ID:    "p42",
		Title: "Updated title",
		Slug:  "keep-this-slug",
	})
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, last.method)
	require.Equal(t, content.NewsPath+"/p42", last.path)
	require.Equal(t, "keep-this-slug", last.post.Slug, "an explicit slug is not overridden")
}

func TestSaveWhitespaceSlugIsDefaulted(t *testing.T) {
	_, editor, last := setupEditor(t, 200, "")

	_, err := editor.Save(context.Background(), content.Form{Title: "Winter Checks", Slug: "   "})
	require.NoError(t, err)
	require.Equal(t, "winter-checks", last.post.Slug)
}

func TestSaveReroutesMfaChallenge(t *testing.T) {
	rep, editor, _ := setupEditor(t, 401, `{"error":"MFA required","code":"mfa_required"}`)

	_, err := editor.Save(context.Background(), content.Form{Title: "Blocked"})
	require.Error(t, err)
	require.True(t, api.IsMfaRequired(err))
	require.Equal(t, 1, rep.mfaRequired)
	require.Equal(t, 0, rep.sessionLost)
}

func TestSaveValidationErrorStaysFormScoped(t *testing.T) {
	rep, editor, _ := setupEditor(t, 422, `{"error":"slug already in use"}`)

	_, err := editor.Save(context.Background(), content.Form{Title: "Duplicate"})
	require.Error(t, err)
	require.Equal(t, api.KindValidation, api.KindOf(err))
	require.Zero(t, rep.mfaRequired)
	require.Zero(t, rep.sessionLost)
}
