// Package console implements the generic paginated, filterable admin console
// pattern shared by every admin entity: query-parameter-driven list fetches
// with last-query-wins staleness handling, page-scoped selection, row and
// bulk mutations that re-raise MFA challenges into the auth controller, and
// client-side CSV export.
package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ctrlcompliance/admin-console/api"
)

// ErrClosed is returned once the console has been unmounted.
var ErrClosed = errors.New("console is closed")

// ErrNothingSelected is returned by a selection-scoped export with an empty
// selection.
var ErrNothingSelected = errors.New("nothing selected")

// AuthReporter receives the only two failure classes that may alter global
// authentication state. The auth controller implements it.
type AuthReporter interface {
	// RequireMfaMidSession reroutes to the MFA challenge after a request was
	// refused pending re-verification.
	RequireMfaMidSession()
	// SessionLost forces the unauthenticated state after a 401 without an MFA
	// marker.
	SessionLost()
}

// ItemError reports one failed item inside a bulk run.
type ItemError struct {
	ID      string
	Op      string
	Message string
}

// ExportScope selects which rows a CSV export covers. Exports never touch the
// network: "page" means the currently loaded page, not the full filtered set.
type ExportScope string

const (
	ExportSelection ExportScope = "selection"
	ExportPage      ExportScope = "page"
)

// Console is one entity's list-and-mutate view over the admin API.
// Methods are safe for concurrent use; state is applied under a single lock
// and list responses are gated on a query tag plus a liveness flag.
type Console[T any] struct {
	api  *api.Client
	res  Resource[T]
	auth AuthReporter
	log  zerolog.Logger

	mu       sync.Mutex
	query    Query
	liveTag  string
	closed   bool
	items    []T
	total    int
	selected map[string]struct{}
}

// Option modifies a Console at construction time.
type Option[T any] func(*Console[T])

// WithLogger sets the console's logger.
func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(c *Console[T]) {
		c.log = log
	}
}

// New creates a console for one resource. No fetch is issued until SetQuery
// or Refresh is called.
func New[T any](apiClient *api.Client, res Resource[T], reporter AuthReporter, options ...Option[T]) (*Console[T], error) {
	if apiClient == nil {
		return nil, errors.New("[console.New] api client is required")
	}
	if res.Path == "" || res.ID == nil {
		return nil, errors.New("[console.New] resource needs a path and an ID extractor")
	}
	if reporter == nil {
		return nil, errors.New("[console.New] auth reporter is required")
	}

	c := &Console[T]{
		api:      apiClient,
		res:      res,
		auth:     reporter,
		log:      zerolog.Nop(),
		query:    DefaultQuery(),
		selected: make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetQuery merges the patch into the current query and issues exactly one
// fetch for the result. Changing anything other than the page resets the page
// to 1. If a newer SetQuery arrives while this fetch is in flight, this
// fetch's response is discarded when it resolves.
func (c *Console[T]) SetQuery(ctx context.Context, patch QueryPatch) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.query = c.query.apply(patch)
	query := c.query
	tag := uuid.New().String()
	c.liveTag = tag
	c.mu.Unlock()

	return c.fetch(ctx, query, tag)
}

// Refresh re-issues the current query unchanged.
func (c *Console[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	query := c.query
	tag := uuid.New().String()
	c.liveTag = tag
	c.mu.Unlock()

	return c.fetch(ctx, query, tag)
}

func (c *Console[T]) fetch(ctx context.Context, query Query, tag string) error {
	var res listResponse[T]
	err := c.api.Get(ctx, c.res.Path, query.values(c.res.StatusParam), &res)
	if err != nil {
		switch {
		case api.IsMfaRequired(err):
			c.log.Info().Str("resource", c.res.Name).Msg("list fetch challenged for MFA")
			c.auth.RequireMfaMidSession()
		case api.IsUnauthorized(err):
			c.auth.SessionLost()
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || tag != c.liveTag {
		// A newer query won, or the console unmounted. Last-query-wins.
		c.log.Debug().Str("resource", c.res.Name).Msg("stale list response dropped")
		return nil
	}
	c.items = res.Items
	c.total = res.Total
	c.pruneSelectionLocked()
	return nil
}

// Items returns the currently loaded page.
func (c *Console[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

// Total returns the server-reported match count for the current query.
func (c *Console[T]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Query returns the current query.
func (c *Console[T]) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.query
	q.Extra = cloneExtra(q.Extra)
	return q
}

// Pages returns max(1, ceil(total/limit)).
func (c *Console[T]) Pages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagesLocked()
}

func (c *Console[T]) pagesLocked() int {
	pages := (c.total + c.query.Limit - 1) / c.query.Limit
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Bounds reports which paging controls are usable: back covers First/Prev,
// forward covers Next/Last.
func (c *Console[T]) Bounds() (back, forward bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Page > 1, c.query.Page < c.pagesLocked()
}

// FirstPage, PrevPage, NextPage and LastPage move within the computed page
// bounds. A move that would land on the current page is a no-op.
func (c *Console[T]) FirstPage(ctx context.Context) error {
	return c.moveTo(ctx, func(page, pages int) int { return 1 })
}

// PrevPage moves one page back.
func (c *Console[T]) PrevPage(ctx context.Context) error {
	return c.moveTo(ctx, func(page, pages int) int { return page - 1 })
}

// NextPage moves one page forward.
func (c *Console[T]) NextPage(ctx context.Context) error {
	return c.moveTo(ctx, func(page, pages int) int { return page + 1 })
}

// LastPage moves to the final page.
func (c *Console[T]) LastPage(ctx context.Context) error {
	return c.moveTo(ctx, func(page, pages int) int { return pages })
}

func (c *Console[T]) moveTo(ctx context.Context, target func(page, pages int) int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	pages := c.pagesLocked()
	next := target(c.query.Page, pages)
	if next < 1 {
		next = 1
	}
	if next > pages {
		next = pages
	}
	if next == c.query.Page {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.SetQuery(ctx, QueryPatch{Page: &next})
}

// ToggleSelect flips membership of a row on the loaded page in the selection
// set. Unknown ids are ignored; selection never spans pages.
func (c *Console[T]) ToggleSelect(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.onPageLocked(id) {
		return
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (c *Console[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]struct{})
}

// Selected returns the selected ids in page order.
func (c *Console[T]) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedLocked()
}

func (c *Console[T]) selectedLocked() []string {
	ids := make([]string, 0, len(c.selected))
	for _, item := range c.items {
		id := c.res.ID(item)
		if _, ok := c.selected[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Console[T]) onPageLocked(id string) bool {
	for _, item := range c.items {
		if c.res.ID(item) == id {
			return true
		}
	}
	return false
}

func (c *Console[T]) pruneSelectionLocked() {
	kept := make(map[string]struct{}, len(c.selected))
	for _, item := range c.items {
		id := c.res.ID(item)
		if _, ok := c.selected[id]; ok {
			kept[id] = struct{}{}
		}
	}
	c.selected = kept
}

// MutateOne applies one row-level operation. On success the list is
// refetched; the page cache is never patched optimistically. An MFA-required
// refusal is rerouted to the auth controller and the item (and list) is left
// untouched. Any other failure stays item-scoped.
func (c *Console[T]) MutateOne(ctx context.Context, id string, m Mutation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	path := c.res.Path + "/" + id + m.Suffix
	if err := c.api.Mutate(ctx, m.Method, path, m.Body, nil); err != nil {
		switch {
		case api.IsMfaRequired(err):
			c.log.Info().Str("resource", c.res.Name).Str("op", m.Name).Msg("mutation challenged for MFA")
			c.auth.RequireMfaMidSession()
		case api.IsUnauthorized(err):
			c.auth.SessionLost()
		}
		return err
	}

	if err := c.Refresh(ctx); err != nil {
		// The mutation itself stood; a failed refetch only leaves the page stale.
		c.log.Warn().Err(err).Str("resource", c.res.Name).Msg("post-mutation refresh failed")
	}
	return nil
}

// MutateBulk applies the operation to every selected row sequentially, one
// request at a time, continuing past individual failures so the operator can
// see partial completion in the refreshed list. The selection is cleared once
// the loop completes regardless of failures; the per-item failures are
// returned.
func (c *Console[T]) MutateBulk(ctx context.Context, m Mutation) []ItemError {
	ids := c.Selected()

	var failed []ItemError
	for _, id := range ids {
		if err := c.MutateOne(ctx, id, m); err != nil {
			failed = append(failed, ItemError{ID: id, Op: m.Name, Message: err.Error()})
		}
	}

	c.ClearSelection()
	return failed
}

// ExportCSV serializes the chosen rows into RFC-4180 CSV with the resource's
// fixed column order and returns the bytes plus a download filename. It never
// touches the network; "page" scope covers only the loaded page.
func (c *Console[T]) ExportCSV(scope ExportScope) ([]byte, string, error) {
	c.mu.Lock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	selected := make(map[string]struct{}, len(c.selected))
	for id := range c.selected {
		selected[id] = struct{}{}
	}
	page := c.query.Page
	c.mu.Unlock()

	rows := items
	if scope == ExportSelection {
		rows = rows[:0:0]
		for _, item := range items {
			if _, ok := selected[c.res.ID(item)]; ok {
				rows = append(rows, item)
			}
		}
		if len(rows) == 0 {
			return nil, "", ErrNothingSelected
		}
	}

	records := make([][]string, 0, len(rows))
	for _, item := range rows {
		records = append(records, c.res.Row(item))
	}
	data, err := writeCsv(c.res.Columns, records)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ctrl-%s-page%d.csv", c.res.Name, page)
	return data, filename, nil
}

// Close marks the console unmounted: in-flight fetch results are no longer
// applied and further operations return ErrClosed.
func (c *Console[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
