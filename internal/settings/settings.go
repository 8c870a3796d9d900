// Package settings stores per-practice runtime settings in Redis. Values not yet
// saved fall back to the environment defaults from config.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/internal/scheduling"
)

// ChannelFlags switches each notification channel on or off.
type ChannelFlags struct {
	SMSOnBooking      bool `json:"sms_on_booking"`
	SMSOnCancellation bool `json:"sms_on_cancellation"`
	SMSOnReschedule   bool `json:"sms_on_reschedule"`
	SMSReminders      bool `json:"sms_reminders"`
	CalendarSync      bool `json:"calendar_sync"`
	InvoiceEmail      bool `json:"invoice_email"`
}

// Settings is the practice's scheduling and notification configuration.
type Settings struct {
	PracticeID          string       `json:"practice_id"`
	Timezone            string       `json:"timezone"`
	WorkingHoursStart   string       `json:"working_hours_start"`
	WorkingHoursEnd     string       `json:"working_hours_end"`
	SlotGranularityMins int          `json:"slot_granularity_minutes"`
	ReminderLeadMins    int          `json:"reminder_lead_minutes"`
	Channels            ChannelFlags `json:"channels"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Defaults builds settings from environment configuration.
func Defaults(cfg *config.Config) *Settings {
	return &Settings{
		PracticeID:          cfg.PracticeID,
		Timezone:            cfg.PracticeTimezone,
		WorkingHoursStart:   cfg.WorkingHoursStart,
		WorkingHoursEnd:     cfg.WorkingHoursEnd,
		SlotGranularityMins: int(cfg.SlotGranularity / time.Minute),
		ReminderLeadMins:    int(cfg.ReminderLeadTime / time.Minute),
		Channels: ChannelFlags{
			SMSOnBooking:      cfg.SMSOnBooking,
			SMSOnCancellation: cfg.SMSOnCancellation,
			SMSOnReschedule:   cfg.SMSOnReschedule,
			SMSReminders:      cfg.SMSReminders,
			CalendarSync:      cfg.CalendarSyncEnabled,
			InvoiceEmail:      cfg.InvoiceEmailEnabled,
		},
	}
}

// Location resolves the practice timezone.
func (s *Settings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("settings: timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// TimeGrid builds the working-hours grid.
func (s *Settings) TimeGrid() (scheduling.TimeGrid, error) {
	loc, err := s.Location()
	if err != nil {
		return scheduling.TimeGrid{}, err
	}
	return scheduling.NewTimeGrid(s.WorkingHoursStart, s.WorkingHoursEnd, time.Duration(s.SlotGranularityMins)*time.Minute, loc)
}

// ReminderLead is how long before the start a reminder goes out.
func (s *Settings) ReminderLead() time.Duration {
	return time.Duration(s.ReminderLeadMins) * time.Minute
}

// ChannelEnabled maps a notification channel name to its flag. Unknown channels are enabled.
func (s *Settings) ChannelEnabled(channel string) bool {
	switch channel {
	case "sms_confirmation":
		return s.Channels.SMSOnBooking
	case "sms_cancellation":
		return s.Channels.SMSOnCancellation
	case "sms_reschedule":
		return s.Channels.SMSOnReschedule
	case "sms_reminder":
		return s.Channels.SMSReminders
	case "calendar_sync":
		return s.Channels.CalendarSync
	case "invoice_email":
		return s.Channels.InvoiceEmail
	default:
		return true
	}
}

// Validate rejects settings that would break slot computation.
func (s *Settings) Validate() error {
	if s.ReminderLeadMins < 0 {
		return errors.New("settings: reminder lead must not be negative")
	}
	_, err := s.TimeGrid()
	return err
}

// Store provides persistence for practice settings.
type Store struct {
	redis      *redis.Client
	practiceID string
	defaults   *Settings
}

// NewStore creates a store scoped to the configured practice.
func NewStore(redisClient *redis.Client, cfg *config.Config) *Store {
	return &Store{redis: redisClient, practiceID: cfg.PracticeID, defaults: Defaults(cfg)}
}

func (s *Store) key() string {
	return fmt.Sprintf("practice:settings:%s", s.practiceID)
}

// Get returns the stored settings, or the defaults when none are saved.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	if s.redis == nil {
		cp := *s.defaults
		return &cp, nil
	}
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		cp := *s.defaults
		return &cp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: get: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("settings: unmarshal: %w", err)
	}
	return &out, nil
}

// Set validates and saves settings.
func (s *Store) Set(ctx context.Context, in *Settings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if s.redis == nil {
		return errors.New("settings: redis not configured")
	}
	in.PracticeID = s.practiceID
	in.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("settings: set: %w", err)
	}
	return nil
}

// ChannelEnabled reports whether a notification channel is switched on.
func (s *Store) ChannelEnabled(ctx context.Context, channel string) (bool, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return cur.ChannelEnabled(channel), nil
}

// TimeGrid returns the current working-hours grid.
func (s *Store) TimeGrid(ctx context.Context) (scheduling.TimeGrid, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return scheduling.TimeGrid{}, err
	}
	return cur.TimeGrid()
}

// ReminderLead returns the current reminder lead time.
func (s *Store) ReminderLead(ctx context.Context) (time.Duration, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cur.ReminderLead(), nil
}
