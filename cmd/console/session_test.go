package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/auth"
	"github.com/ctrlcompliance/admin-console/devicetrust/repofake"
)

// setupSession returns an authenticated session plus the pages requested from
// the message list endpoint, in order.
func setupSession(t *testing.T) (*session, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var listPages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/admin/csrf":
			_, _ = w.Write([]byte(`{"csrf":"tok"}`))
		case r.URL.Path == "/admin/login" || r.URL.Path == "/admin/2fa/verify":
			_, _ = w.Write([]byte(`{}`))
		case r.URL.Path == "/admin/messages" && r.Method == http.MethodGet:
			mu.Lock()
			listPages = append(listPages, r.URL.Query().Get("page"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"items":[{"_id":"m1","name":"Pat"}],"total":45}`))
		default:
			// Every row mutation raises a mid-session MFA challenge.
			w.WriteHeader(401)
			_, _ = w.Write([]byte(`{"error":"MFA required","code":"mfa_required"}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	controller, err := auth.New(client, repofake.NewFakeStore())
	require.NoError(t, err)
	_, err = controller.Login(context.Background(), "ops@ctrlcompliance.co.uk", "pw")
	require.NoError(t, err)

	s := &session{log: zerolog.Nop(), api: client, controller: controller}
	pages := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), listPages...)
	}
	return s, pages
}

func TestBrowseKeepsPlaceAcrossMfaReverify(t *testing.T) {
	ctx := context.Background()
	s, pages := setupSession(t)

	// Move to page 2, then hit an operation that is refused pending MFA.
	s.in = bufio.NewScanner(strings.NewReader("next\nmutate read m1\n"))
	quit := s.browse(ctx)
	require.False(t, quit, "an MFA challenge hands control back to the auth loop")
	require.Equal(t, auth.StatusMfaPending, s.controller.State().Status)
	require.NotNil(t, s.views, "the consoles survive the re-verification detour")

	_, err := s.controller.VerifyMfa(ctx, "123456", false)
	require.NoError(t, err)

	s.in = bufio.NewScanner(strings.NewReader("quit\n"))
	require.True(t, s.browse(ctx))

	got := pages()
	require.Equal(t, "2", got[len(got)-1], "re-entry refreshes the page the operator was on")
}

func TestLogoutTearsDownViews(t *testing.T) {
	s, _ := setupSession(t)

	s.in = bufio.NewScanner(strings.NewReader("logout\n"))
	require.False(t, s.browse(context.Background()))
	require.Nil(t, s.views, "logout starts the next operator from a clean slate")
	require.Equal(t, auth.StatusUnauthenticated, s.controller.State().Status)
}
