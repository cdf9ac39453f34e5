package messages_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ctrlcompliance/admin-console/messages"
)

func TestResourceRowMatchesColumnOrder(t *testing.T) {
	res := messages.Resource()

	created := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	m := messages.Message{
		ID:        "m1",
		CreatedAt: created,
		Name:      "Pat Driver",
		Email:     "pat@example.com",
		Company:   "Haulage Ltd",
		FleetSize: "25-50",
		Read:      true,
		Message:   "Need help with OCRS scores",
		IP:        "10.0.0.9",
		UserAgent: "Mozilla/5.0",
	}

	row := res.Row(m)
	require.Len(t, row, len(res.Columns))
	require.Equal(t, "m1", row[0])
	require.Equal(t, "2026-08-01T10:30:00Z", row[1], "timestamps export as RFC 3339 UTC")
	require.Equal(t, "true", row[6])
	require.Equal(t, "m1", res.ID(m))
}

func TestMutationShapes(t *testing.T) {
	read := messages.SetRead(true)
	require.Equal(t, http.MethodPatch, read.Method)
	require.Equal(t, "mark-read", read.Name)

	unread := messages.SetRead(false)
	require.Equal(t, "mark-unread", unread.Name)

	del := messages.Delete()
	require.Equal(t, http.MethodDelete, del.Method)
	require.Empty(t, del.Suffix)

	restore := messages.Restore()
	require.Equal(t, http.MethodPost, restore.Method)
	require.Equal(t, "/restore", restore.Suffix)
}
