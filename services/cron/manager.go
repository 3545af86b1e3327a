package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobExpireInvoices   = "expire_pending_invoices"
	JobMonthlyRevenue   = "generate_monthly_revenue"
	JobCleanupBlacklist = "cleanup_expired_tokens"
)

// InvoiceExpirer cancels PENDING invoices that outlived their payment window
type InvoiceExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// RevenueGenerator upserts the rollup for one month
type RevenueGenerator interface {
	GenerateMonthly(ctx context.Context, year int, month time.Month) (*model.Revenue, error)
}

// TokenCleaner purges blacklist rows whose tokens have expired anyway
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type Jobs struct {
	Invoices InvoiceExpirer
	Revenue  RevenueGenerator
	Tokens   TokenCleaner
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
	jobs Jobs
	now  func() time.Time
}

func NewCronManager(db *gorm.DB, jobs Jobs) *CronManager {
	return &CronManager{
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		db:   db,
		jobs: jobs,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()

	logger.Logger.Info().Int("jobs", len(m.cron.Entries())).Msg("cron jobs started")
	return nil
}

// Stop waits for running jobs to finish
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logger.Logger.Info().Msg("cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	schedules := []struct {
		spec string
		name string
		fn   jobFunc
	}{
		{"0 */30 * * * *", JobExpireInvoices, m.ExpirePendingInvoices},
		{"0 0 1 * * *", JobMonthlyRevenue, m.GenerateMonthlyRevenue},
		{"0 0 3 * * *", JobCleanupBlacklist, m.CleanupExpiredTokens},
	}

	for _, s := range schedules {
		name, fn := s.name, s.fn
		if _, err := m.cron.AddFunc(s.spec, func() { m.Run(name, fn) }); err != nil {
			return err
		}
	}
	return nil
}

// jobFunc returns a human readable summary and optional metadata for the run log
type jobFunc func(ctx context.Context) (string, map[string]interface{}, error)

// Run executes fn once and records the outcome in cron_job_logs
func (m *CronManager) Run(name string, fn jobFunc) *model.CronJobLog {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	started := m.now()
	entry := model.CronJobLog{
		JobName:   name,
		Status:    model.CronStatusRunning,
		StartedAt: started,
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Logger.Error().Err(err).Str("job", name).Msg("failed to record cron job start")
	}

	message, meta, err := fn(ctx)

	completed := m.now()
	entry.CompletedAt = &completed
	entry.DurationMS = completed.Sub(started).Milliseconds()
	entry.Message = message
	if meta != nil {
		if raw, mErr := json.Marshal(meta); mErr == nil {
			entry.Metadata = raw
		}
	}

	event := logger.Logger.Info()
	entry.Status = model.CronStatusCompleted
	if err != nil {
		entry.Status = model.CronStatusFailed
		entry.ErrorMsg = err.Error()
		event = logger.Logger.Error().Err(err)
	}
	event.Str("job", name).Int64("duration_ms", entry.DurationMS).Msg(message)

	if entry.ID != 0 {
		if err := m.db.WithContext(ctx).Save(&entry).Error; err != nil {
			logger.Logger.Error().Err(err).Str("job", name).Msg("failed to record cron job result")
		}
	}
	return &entry
}
