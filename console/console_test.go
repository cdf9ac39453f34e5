package console_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/console"
)

// thing is a minimal resource for exercising the generic console.
type thing struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Note string `json:"note"`
}

func thingResource() console.Resource[thing] {
	return console.Resource[thing]{
		Name:        "things",
		Path:        "/admin/things",
		StatusParam: "done",
		ID:          func(t thing) string { return t.ID },
		Columns:     []string{"_id", "name", "note"},
		Row:         func(t thing) []string { return []string{t.ID, t.Name, t.Note} },
	}
}

// reporter records auth escalations raised by the console.
type reporter struct {
	mu          sync.Mutex
	mfaRequired int
	sessionLost int
}

func (r *reporter) RequireMfaMidSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mfaRequired++
}

func (r *reporter) SessionLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionLost++
}

func (r *reporter) counts() (mfa, lost int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mfaRequired, r.sessionLost
}

// harness scripts the list endpoint and row mutations for one test.
type harness struct {
	mu         sync.Mutex
	items      []thing
	total      int
	listCalls  int
	lastQuery  map[string]string
	mutated    []string       // row ids in mutation order
	mutateFail map[string]int // row id -> HTTP status to fail with

	listFail     int    // HTTP status the list endpoint fails with, 0 for success
	listFailBody string // error body sent with listFail

	// holdList, when set for a q value, blocks that list response until the
	// matching channel is closed.
	holdList map[string]chan struct{}
	listSeen chan string
}

func (h *harness) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/csrf" {
			_, _ = w.Write([]byte(`{"csrf":"tok"}`))
			return
		}

		if r.URL.Path == "/admin/things" && r.Method == http.MethodGet {
			q := r.URL.Query().Get("q")

			h.mu.Lock()
			h.listCalls++
			h.lastQuery = map[string]string{}
			for key, values := range r.URL.Query() {
				h.lastQuery[key] = values[0]
			}
			hold := h.holdList[q]
			items, total := h.items, h.total
			seen := h.listSeen
			failStatus, failBody := h.listFail, h.listFailBody
			h.mu.Unlock()

			if failStatus != 0 {
				w.WriteHeader(failStatus)
				_, _ = w.Write([]byte(failBody))
				return
			}

			if seen != nil {
				seen <- q
			}
			if hold != nil {
				<-hold
			}

			// A held query responds with its own marker item so the test can
			// tell whose response got applied.
			if hold != nil {
				items = []thing{{ID: "from-" + q, Name: q}}
				total = 1
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "total": total})
			return
		}

		// Row mutation: /admin/things/{id}[/suffix]
		id := strings.TrimPrefix(r.URL.Path, "/admin/things/")
		id = strings.SplitN(id, "/", 2)[0]
		h.mu.Lock()
		h.mutated = append(h.mutated, id)
		status := h.mutateFail[id]
		h.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			if status == 401 {
				_, _ = w.Write([]byte(`{"error":"MFA required","code":"mfa_required"}`))
			} else {
				_, _ = w.Write([]byte(fmt.Sprintf(`{"error":"mutation failed with %d"}`, status)))
			}
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
}

func setupConsole(t *testing.T) (*harness, *console.Console[thing], *reporter) {
	t.Helper()

	h := &harness{mutateFail: map[string]int{}, holdList: map[string]chan struct{}{}}
	srv := httptest.NewServer(h.handler())
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)

	rep := &reporter{}
	con, err := console.New(client, thingResource(), rep)
	require.NoError(t, err)
	return h, con, rep
}

func patchOp() console.Mutation {
	return console.Mutation{Name: "touch", Method: http.MethodPatch}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func TestLastQueryWins(t *testing.T) {
	h, con, _ := setupConsole(t)
	ctx := context.Background()

	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	h.mu.Lock()
	h.holdList["A"] = releaseA
	h.holdList["B"] = releaseB
	h.listSeen = make(chan string, 2)
	h.mu.Unlock()

	fetchErrs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fetchErrs <- con.SetQuery(ctx, console.QueryPatch{Search: strPtr("A")})
	}()
	<-h.listSeen // A's fetch is in flight

	go func() {
		defer wg.Done()
		fetchErrs <- con.SetQuery(ctx, console.QueryPatch{Search: strPtr("B")})
	}()
	<-h.listSeen // B's fetch is in flight

	// B resolves first, then the stale A response lands.
	close(releaseB)
	close(releaseA)
	wg.Wait()
	require.NoError(t, <-fetchErrs)
	require.NoError(t, <-fetchErrs)

	items := con.Items()
	require.Len(t, items, 1)
	require.Equal(t, "from-B", items[0].ID, "the older query's response must be discarded")
}

func TestPageBoundsForEmptyResult(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.total = 0

	require.NoError(t, con.Refresh(context.Background()))
	require.Equal(t, 1, con.Pages())
	back, forward := con.Bounds()
	require.False(t, back, "First/Prev disabled on page 1")
	require.False(t, forward, "Next/Last disabled when there is a single page")
}

func TestNonPageEditResetsPage(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.total = 500
	ctx := context.Background()

	require.NoError(t, con.SetQuery(ctx, console.QueryPatch{Page: intPtr(4)}))
	require.Equal(t, 4, con.Query().Page)

	require.NoError(t, con.SetQuery(ctx, console.QueryPatch{Search: strPtr("fleet")}))
	require.Equal(t, 1, con.Query().Page)
	require.Equal(t, "fleet", h.lastQuery["q"])

	require.NoError(t, con.SetQuery(ctx, console.QueryPatch{Page: intPtr(3), Status: strPtr("true")}))
	require.Equal(t, 3, con.Query().Page, "page in the same patch wins over the reset")
	require.Equal(t, "true", h.lastQuery["done"])
}

func TestDisallowedLimitSnapsToDefault(t *testing.T) {
	_, con, _ := setupConsole(t)

	require.NoError(t, con.SetQuery(context.Background(), console.QueryPatch{Limit: intPtr(37)}))
	require.Equal(t, console.DefaultLimit, con.Query().Limit)
}

func TestPageNavigationClampsToBounds(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.total = 45 // 3 pages at the default limit of 20
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	require.NoError(t, con.LastPage(ctx))
	require.Equal(t, 3, con.Query().Page)

	calls := h.listCalls
	require.NoError(t, con.NextPage(ctx), "next past the last page is a no-op")
	require.Equal(t, calls, h.listCalls)

	require.NoError(t, con.FirstPage(ctx))
	require.Equal(t, 1, con.Query().Page)
}

func TestMutateOneRefreshesOnSuccess(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.items = []thing{{ID: "a"}}
	h.total = 1
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	calls := h.listCalls

	require.NoError(t, con.MutateOne(ctx, "a", patchOp()))
	require.Equal(t, calls+1, h.listCalls, "a successful mutation refetches the list")
}

func TestMfaRequiredRerouting(t *testing.T) {
	h, con, rep := setupConsole(t)
	h.items = []thing{{ID: "a", Name: "before"}}
	h.total = 1
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	calls := h.listCalls
	h.mutateFail["a"] = 401

	err := con.MutateOne(ctx, "a", patchOp())
	require.Error(t, err)
	require.True(t, api.IsMfaRequired(err))

	mfa, lost := rep.counts()
	require.Equal(t, 1, mfa)
	require.Equal(t, 0, lost)
	require.Equal(t, calls, h.listCalls, "an MFA refusal must not trigger a refresh")
	require.Equal(t, "before", con.Items()[0].Name, "the item is left unchanged")
}

func TestMfaRequiredOnListFetchReroutes(t *testing.T) {
	h, con, rep := setupConsole(t)
	h.listFail = 401
	h.listFailBody = `{"error":"MFA required","code":"mfa_required"}`

	err := con.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, api.IsMfaRequired(err))

	mfa, lost := rep.counts()
	require.Equal(t, 1, mfa, "an MFA challenge on a read reroutes to verification")
	require.Equal(t, 0, lost, "it must not be collapsed into a session loss")
}

func TestPlainUnauthorizedOnListFetchForcesSessionLoss(t *testing.T) {
	h, con, rep := setupConsole(t)
	h.listFail = 401
	h.listFailBody = `{"error":"unauthorized"}`

	err := con.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, api.IsUnauthorized(err))

	mfa, lost := rep.counts()
	require.Equal(t, 0, mfa)
	require.Equal(t, 1, lost)
}

func TestPlainUnauthorizedForcesSessionLoss(t *testing.T) {
	h, con, rep := setupConsole(t)
	h.items = []thing{{ID: "a"}}
	h.total = 1
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	h.mutateFail["a"] = 403

	require.Error(t, con.MutateOne(ctx, "a", patchOp()))
	mfa, lost := rep.counts()
	require.Equal(t, 0, mfa)
	require.Equal(t, 1, lost)
}

func TestValidationErrorStaysItemScoped(t *testing.T) {
	h, con, rep := setupConsole(t)
	h.items = []thing{{ID: "a"}}
	h.total = 1
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	calls := h.listCalls
	h.mutateFail["a"] = 422

	require.Error(t, con.MutateOne(ctx, "a", patchOp()))
	mfa, lost := rep.counts()
	require.Zero(t, mfa)
	require.Zero(t, lost)
	require.Equal(t, calls, h.listCalls)
}

func TestBulkContinuesPastFailures(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.items = []thing{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	h.total = 3
	ctx := context.Background()

	require.NoError(t, con.Refresh(ctx))
	con.ToggleSelect("a")
	con.ToggleSelect("b")
	con.ToggleSelect("c")
	h.mutateFail["b"] = 422

	failed := con.MutateBulk(ctx, patchOp())

	require.Len(t, failed, 1, "exactly one item-level error")
	require.Equal(t, "b", failed[0].ID)
	require.Equal(t, []string{"a", "b", "c"}, h.mutated, "every selected row is attempted, in page order")
	require.Empty(t, con.Selected(), "selection cleared despite the failure")
}

func TestToggleSelectIgnoresUnknownIds(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.items = []thing{{ID: "a"}}
	h.total = 1

	require.NoError(t, con.Refresh(context.Background()))
	con.ToggleSelect("a")
	con.ToggleSelect("ghost")
	require.Equal(t, []string{"a"}, con.Selected())
}

func TestCloseDropsInFlightResults(t *testing.T) {
	h, con, _ := setupConsole(t)
	ctx := context.Background()

	release := make(chan struct{})
	h.mu.Lock()
	h.holdList["slow"] = release
	h.listSeen = make(chan string, 1)
	h.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- con.SetQuery(ctx, console.QueryPatch{Search: strPtr("slow")})
	}()
	<-h.listSeen

	con.Close()
	close(release)
	require.NoError(t, <-done)

	require.Empty(t, con.Items(), "a closed console applies nothing")
	require.ErrorIs(t, con.Refresh(ctx), console.ErrClosed)
}

func TestExportCsv(t *testing.T) {
	h, con, _ := setupConsole(t)
	h.items = []thing{
		{ID: "m1", Name: "Jo", Note: "He said, \"ok\"\nThanks"},
		{ID: "m2", Name: "Sam", Note: "plain"},
	}
	h.total = 2
	ctx := context.Background()
	require.NoError(t, con.Refresh(ctx))

	t.Run("page scope with RFC-4180 round-trip", func(t *testing.T) {
		data, filename, err := con.ExportCSV(console.ExportPage)
		require.NoError(t, err)
		require.Equal(t, "ctrl-things-page1.csv", filename)
		require.Contains(t, string(data), `"He said, ""ok""`)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Equal(t, []string{"_id", "name", "note"}, records[0])
		require.Equal(t, "He said, \"ok\"\nThanks", records[1][2], "quoting must round-trip exactly")
	})

	t.Run("selection scope", func(t *testing.T) {
		con.ToggleSelect("m2")
		data, _, err := con.ExportCSV(console.ExportSelection)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2) // header + m2
		require.Equal(t, "m2", records[1][0])
	})

	t.Run("empty selection refuses", func(t *testing.T) {
		con.ClearSelection()
		_, _, err := con.ExportCSV(console.ExportSelection)
		require.ErrorIs(t, err, console.ErrNothingSelected)
	})
}
