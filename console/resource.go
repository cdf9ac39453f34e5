package console

// Resource describes one admin entity to the generic console: where its list
// lives, how rows are identified, and how they serialize to CSV. The entity
// packages (messages, adminusers, content, comments, authlogs) each provide
// one of these.
type Resource[T any] struct {
	// Name is the short resource name used in log lines and CSV filenames.
	Name string

	// Path is the admin list endpoint, e.g. "/admin/messages". Row-level
	// mutations target Path + "/" + id (+ mutation suffix).
	Path string

	// StatusParam names the query parameter carrying the status filter
	// ("read", "approved", "disabled"), "" for resources without one.
	StatusParam string

	// ID extracts the row identity.
	ID func(item T) string

	// Columns is the fixed, stable CSV column order.
	Columns []string

	// Row serializes an item into CSV fields, aligned with Columns.
	Row func(item T) []string
}

// Mutation is one row-level operation: mark read/unread, approve, soft
// delete, restore, disable, password reset, and so on. Entity packages expose
// constructors for the mutations their endpoints support.
type Mutation struct {
	Name   string // for log lines and error reports
	Method string
	Suffix string // appended after the row id, e.g. "/restore"
	Body   any    // JSON body, nil for bodyless operations
}

// listResponse is the wire contract of every admin list endpoint.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
