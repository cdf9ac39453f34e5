package console

import (
	"net/url"
	"strconv"
)

// Limits are the allowed page sizes, matching the admin UI's selector.
var Limits = []int{10, 20, 50, 100}

// DefaultLimit is the page size used when none has been chosen.
const DefaultLimit = 20

// Query drives exactly one list fetch. Values are rebuilt immutably on every
// edit; the console compares response tags against the live query so a stale
// fetch can never clobber a newer one.
type Query struct {
	Page   int
	Limit  int
	Search string            // free-text q parameter
	Status string            // resource status filter value, "" means all
	Extra  map[string]string // resource-specific extra filters (e.g. comment slug)
}

// DefaultQuery returns the first-page query with the default limit.
func DefaultQuery() Query {
	return Query{Page: 1, Limit: DefaultLimit}
}

// QueryPatch is a partial query edit. Nil fields are left unchanged. Editing
// anything other than the page resets the page to 1.
type QueryPatch struct {
	Page   *int
	Limit  *int
	Search *string
	Status *string
	Extra  map[string]string // non-nil replaces the whole extra set
}

func (q Query) apply(patch QueryPatch) Query {
	next := q
	next.Extra = cloneExtra(q.Extra)

	resetPage := false
	if patch.Limit != nil {
		next.Limit = allowedLimit(*patch.Limit)
		resetPage = true
	}
	if patch.Search != nil {
		next.Search = *patch.Search
		resetPage = true
	}
	if patch.Status != nil {
		next.Status = *patch.Status
		resetPage = true
	}
	if patch.Extra != nil {
		next.Extra = cloneExtra(patch.Extra)
		resetPage = true
	}
	if resetPage {
		next.Page = 1
	}
	if patch.Page != nil {
		next.Page = *patch.Page
		if next.Page < 1 {
			next.Page = 1
		}
	}
	return next
}

// values renders the query as request parameters. statusParam names the
// resource's status filter ("read", "approved", ...), "" when it has none.
func (q Query) values(statusParam string) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	if q.Status != "" && statusParam != "" {
		params.Set(statusParam, q.Status)
	}
	for key, value := range q.Extra {
		if value != "" {
			params.Set(key, value)
		}
	}
	return params
}

func allowedLimit(limit int) int {
	for _, allowed := range Limits {
		if limit == allowed {
			return limit
		}
	}
	return DefaultLimit
}

func cloneExtra(extra map[string]string) map[string]string {
	if extra == nil {
		return nil
	}
	clone := make(map[string]string, len(extra))
	for k, v := range extra {
		clone[k] = v
	}
	return clone
}
