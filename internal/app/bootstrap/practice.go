// Package bootstrap wires the practice's stores, notification channels and
// booking coordinator from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medspa-practice/internal/api/router"
	"github.com/wolfman30/medspa-practice/internal/bookings"
	"github.com/wolfman30/medspa-practice/internal/catalog"
	appconfig "github.com/wolfman30/medspa-practice/internal/config"
	"github.com/wolfman30/medspa-practice/internal/inventory"
	"github.com/wolfman30/medspa-practice/internal/notify"
	"github.com/wolfman30/medspa-practice/internal/observability/metrics"
	"github.com/wolfman30/medspa-practice/internal/settings"
	"github.com/wolfman30/medspa-practice/pkg/logging"
)

// Deps are the connections the practice is built on. A nil Pool selects the
// in-memory stores, which is what local runs without DATABASE_URL get.
type Deps struct {
	Config     *appconfig.Config
	Logger     *logging.Logger
	Pool       *pgxpool.Pool
	SQL        *sql.DB
	Redis      *redis.Client
	SQS        notify.SQSAPI
	SES        notify.SESAPI
	Registerer prometheus.Registerer
}

// Practice holds the wired services.
type Practice struct {
	Settings     *settings.Store
	Appointments bookings.Repository
	Catalog      catalog.Repository
	Inventory    *inventory.Ledger
	Reminders    notify.ReminderStore
	Notifier     *notify.Orchestrator
	Bookings     *bookings.Service
	Persistent   bool
}

// BuildPractice assembles the booking coordinator and everything it drives.
func BuildPractice(deps Deps) (*Practice, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	loc, err := settings.Defaults(cfg).Location()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	p := &Practice{Settings: settings.NewStore(deps.Redis, cfg)}
	var (
		invStore inventory.Store
		contacts notify.ContactResolver
		attempts interface {
			notify.AttemptRecorder
			bookings.AttemptReader
		}
	)
	if deps.Pool != nil {
		p.Persistent = true
		p.Appointments = bookings.NewPostgresRepository(deps.Pool)
		p.Catalog = catalog.NewPostgresRepository(deps.Pool)
		p.Reminders = notify.NewPostgresReminderStore(deps.Pool)
		invStore = inventory.NewPostgresStore(deps.Pool, logger)
		contacts = notify.NewPostgresContacts(deps.Pool)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		p.Appointments = bookings.NewMemoryRepository()
		p.Catalog = catalog.NewMemoryRepository()
		p.Reminders = notify.NewMemoryReminderStore()
		invStore = inventory.NewMemoryStore()
		contacts = notify.NewContactBook()
	}
	if deps.SQL != nil {
		attempts = notify.NewSQLAttemptStore(deps.SQL)
	} else {
		attempts = notify.NewMemoryAttemptStore()
	}

	p.Inventory = inventory.NewLedger(invStore, logger, metrics.NewInventoryMetrics(reg))

	email := BuildEmailSender(cfg, deps.SES, logger)
	p.Notifier = notify.NewOrchestrator(notify.OrchestratorConfig{
		Appointments:   p.Appointments,
		Contacts:       contacts,
		Toggles:        p.Settings,
		Attempts:       attempts,
		Dispatchers:    buildDispatchers(cfg, p.Appointments, deps.SQS, email, loc, logger),
		ChannelTimeout: cfg.NotifyChannelTimeout,
		Metrics:        metrics.NewNotificationMetrics(reg),
		Logger:         logger,
	})

	p.Bookings = bookings.NewService(bookings.Config{
		Repo:      p.Appointments,
		Catalog:   p.Catalog,
		Schedule:  p.Settings,
		Ledger:    p.Inventory,
		Notifier:  p.Notifier,
		Reminders: p.Reminders,
		Attempts:  attempts,
		LowStock:  notify.NewLowStockMailer(email, cfg.LowStockAlertEmail, cfg.PracticeName, logger),
		Metrics:   metrics.NewBookingMetrics(reg),
		Logger:    logger,
	})
	return p, nil
}

// BuildEmailSender prefers SendGrid, then SES, and logs messages when neither
// is configured.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.EmailFromName,
	}, logger); sg != nil {
		return sg
	}
	if ses != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		return notify.NewSESSender(ses, notify.SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.EmailFromName}, logger)
	}
	logger.Warn("no email provider configured, invoice and stock emails are logged only")
	return notify.NewLogEmailSender(logger)
}

// buildDispatchers registers a dispatcher per channel that has a backing
// provider. Channels without one are recorded as skipped.
func buildDispatchers(cfg *appconfig.Config, marker notify.InvoiceMarker, sqsClient notify.SQSAPI, email notify.EmailSender, loc *time.Location, logger *logging.Logger) map[notify.Channel]notify.Dispatcher {
	out := map[notify.Channel]notify.Dispatcher{
		notify.ChannelInvoiceEmail: notify.NewInvoiceDispatcher(marker, email, cfg.PracticeName, loc),
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sms := notify.NewSMSDispatcher(
			notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger),
			cfg.PracticeName, loc,
		)
		for _, ch := range []notify.Channel{
			notify.ChannelSMSConfirmation,
			notify.ChannelSMSReschedule,
			notify.ChannelSMSCancellation,
			notify.ChannelSMSReminder,
		} {
			out[ch] = sms
		}
	} else {
		logger.Warn("twilio not configured, sms channels disabled")
	}
	if sqsClient != nil && strings.TrimSpace(cfg.CalendarSyncQueueURL) != "" {
		out[notify.ChannelCalendarSync] = notify.NewCalendarDispatcher(notify.NewSQSQueue(sqsClient, cfg.CalendarSyncQueueURL))
	}
	return out
}

// ReminderWorker builds the reminder dispatcher over the practice's stores.
func (p *Practice) ReminderWorker(locker notify.Locker, logger *logging.Logger) *notify.ReminderWorker {
	return notify.NewReminderWorker(p.Reminders, p.Notifier, p.Appointments, locker, logger)
}

// HealthChecks returns the probes the api exposes on /health.
func HealthChecks(deps Deps) map[string]router.HealthCheck {
	checks := make(map[string]router.HealthCheck)
	if deps.Pool != nil {
		checks["postgres"] = deps.Pool.Ping
	}
	if deps.SQL != nil {
		checks["postgres_sql"] = deps.SQL.PingContext
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}
	return checks
}
