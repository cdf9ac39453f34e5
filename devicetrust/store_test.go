package devicetrust_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ctrlcompliance/admin-console/devicetrust"
	"github.com/ctrlcompliance/admin-console/devicetrust/repofake"
)

func TestMarkerExpiry(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	m := devicetrust.Marker{Value: "d1", Expiry: now.Add(devicetrust.Validity)}

	require.False(t, m.Expired(now))
	require.False(t, m.Expired(now.Add(devicetrust.Validity-time.Second)))
	require.True(t, m.Expired(now.Add(devicetrust.Validity)), "expiry instant counts as expired")
	require.True(t, m.Expired(now.Add(devicetrust.Validity+time.Hour)))
}

func TestFakeStoreRoundTrip(t *testing.T) {
	store := repofake.NewFakeStore()

	marker, err := store.Get()
	require.NoError(t, err)
	require.Nil(t, marker)

	want := devicetrust.Marker{Value: "d1", Expiry: time.Now().Add(devicetrust.Validity)}
	require.NoError(t, store.Set(want))

	marker, err = store.Get()
	require.NoError(t, err)
	require.Equal(t, want.Value, marker.Value)

	require.NoError(t, store.Clear())
	marker, err = store.Get()
	require.NoError(t, err)
	require.Nil(t, marker)
}
