package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-practice/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		PracticeID:          "glow",
		PracticeTimezone:    "UTC",
		WorkingHoursStart:   "08:00",
		WorkingHoursEnd:     "20:00",
		SlotGranularity:     15 * time.Minute,
		ReminderLeadTime:    24 * time.Hour,
		SMSOnBooking:        true,
		SMSOnCancellation:   true,
		SMSOnReschedule:     true,
		SMSReminders:        true,
		CalendarSyncEnabled: true,
		InvoiceEmailEnabled: false,
	}
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, testConfig()), mr
}

func TestStoreReturnsDefaultsWhenUnset(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "glow", got.PracticeID)
	assert.Equal(t, 15, got.SlotGranularityMins)
	assert.Equal(t, 24*time.Hour, got.ReminderLead())

	on, err := store.ChannelEnabled(context.Background(), "invoice_email")
	require.NoError(t, err)
	assert.False(t, on)
	on, err = store.ChannelEnabled(context.Background(), "sms_confirmation")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestStoreSetAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	s, err := store.Get(ctx)
	require.NoError(t, err)
	s.WorkingHoursStart = "09:00"
	s.WorkingHoursEnd = "11:00"
	s.Channels.SMSOnBooking = false
	require.NoError(t, store.Set(ctx, s))
	assert.True(t, mr.Exists("practice:settings:glow"))

	on, err := store.ChannelEnabled(ctx, "sms_confirmation")
	require.NoError(t, err)
	assert.False(t, on)

	grid, err := store.TimeGrid(ctx)
	require.NoError(t, err)
	assert.Equal(t, "09:00", grid.Open.String())
	assert.Equal(t, "11:00", grid.Close.String())
}

func TestStoreRejectsInvalidSettings(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s, _ := store.Get(ctx)
	s.WorkingHoursStart = "21:00"
	require.Error(t, store.Set(ctx, s))

	s, _ = store.Get(ctx)
	s.Timezone = "Mars/Olympus"
	require.Error(t, store.Set(ctx, s))
}

func TestStoreSurfacesRedisErrors(t *testing.T) {
	store, mr := newTestStore(t)
	mr.SetError("boom")

	_, err := store.Get(context.Background())
	require.Error(t, err)
	_, err = store.ChannelEnabled(context.Background(), "calendar_sync")
	require.Error(t, err)
}

func TestStoreWithoutRedisUsesDefaults(t *testing.T) {
	store := NewStore(nil, testConfig())
	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "08:00", got.WorkingHoursStart)
	require.Error(t, store.Set(context.Background(), got))
}

func TestChannelEnabledUnknownChannel(t *testing.T) {
	assert.True(t, Defaults(testConfig()).ChannelEnabled("carrier_pigeon"))
}
