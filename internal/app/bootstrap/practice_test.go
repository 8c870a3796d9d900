package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-practice/internal/bookings"
	appconfig "github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/internal/notify"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

type stubSES struct{}

func (stubSES) SendEmail(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return &sesv2.SendEmailOutput{}, nil
}

type stubSQS struct{}

func (stubSQS) SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func testConfig() *appconfig.Config {
	cfg := appconfig.Load()
	cfg.SendGridAPIKey = ""
	cfg.SESFromEmail = ""
	cfg.TwilioAccountSID = ""
	cfg.TwilioAuthToken = ""
	cfg.CalendarSyncQueueURL = ""
	cfg.PracticeTimezone = "UTC"
	return cfg
}

func TestBuildPracticeRequiresConfig(t *testing.T) {
	_, err := BuildPractice(Deps{})
	require.Error(t, err)
}

func TestBuildPracticeInvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.PracticeTimezone = "Mars/Olympus"
	_, err := BuildPractice(Deps{Config: cfg, Logger: logging.New("error")})
	require.Error(t, err)
}

func TestBuildPracticeInMemory(t *testing.T) {
	p, err := BuildPractice(Deps{Config: testConfig(), Logger: logging.New("error")})
	require.NoError(t, err)

	assert.False(t, p.Persistent)
	assert.IsType(t, &bookings.MemoryRepository{}, p.Appointments)
	require.NotNil(t, p.Bookings)
	require.NotNil(t, p.ReminderWorker(nil, nil))

	day := time.Now().UTC().AddDate(0, 0, 3).Truncate(24 * time.Hour)
	slots, err := p.Bookings.GetAvailableSlots(context.Background(), "prac-1", day, 30*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	cfg := testConfig()
	assert.IsType(t, &notify.LogEmailSender{}, BuildEmailSender(cfg, stubSES{}, logger))

	cfg.SESFromEmail = "front-desk@example.com"
	assert.IsType(t, &notify.SESSender{}, BuildEmailSender(cfg, stubSES{}, logger))
	assert.IsType(t, &notify.LogEmailSender{}, BuildEmailSender(cfg, nil, logger))

	cfg.SendGridAPIKey = "SG.test"
	assert.IsType(t, &notify.SendGridSender{}, BuildEmailSender(cfg, stubSES{}, logger))
}

func TestBuildDispatchers(t *testing.T) {
	logger := logging.New("error")
	repo := bookings.NewMemoryRepository()
	email := notify.NewLogEmailSender(logger)

	cfg := testConfig()
	got := buildDispatchers(cfg, repo, nil, email, time.UTC, logger)
	assert.Len(t, got, 1)
	assert.Contains(t, got, notify.ChannelInvoiceEmail)

	cfg.TwilioAccountSID = "AC123"
	cfg.TwilioAuthToken = "token"
	cfg.CalendarSyncQueueURL = "http://localhost:4566/000000000000/calendar-sync"
	got = buildDispatchers(cfg, repo, stubSQS{}, email, time.UTC, logger)
	for _, ch := range []notify.Channel{
		notify.ChannelSMSConfirmation,
		notify.ChannelSMSReminder,
		notify.ChannelCalendarSync,
		notify.ChannelInvoiceEmail,
	} {
		assert.Contains(t, got, ch)
	}
	assert.Len(t, got, 6)
}

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logger, true))

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	checks := HealthChecks(Deps{Redis: client})
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"](context.Background()))

	mr.Close()
	assert.Error(t, checks["redis"](context.Background()))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger, true))
}
