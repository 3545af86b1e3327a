package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/database/testdb"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	count int64
	err   error
	at    time.Time
}

func (f *fakeExpirer) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return f.count, f.err
}

type fakeRevenue struct {
	months []string
}

func (f *fakeRevenue) GenerateMonthly(_ context.Context, year int, month time.Month) (*model.Revenue, error) {
	f.months = append(f.months, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"))
	return &model.Revenue{Year: year, Month: int(month)}, nil
}

type fakeCleaner struct{}

func (fakeCleaner) CleanupExpiredTokens(context.Context) (int64, error) { return 3, nil }

func newTestManager(t *testing.T, jobs Jobs, now time.Time) *CronManager {
	t.Helper()
	m := NewCronManager(testdb.New(t), jobs)
	m.now = func() time.Time { return now }
	return m
}

func TestRunRecordsCompletedJob(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{count: 4}
	m := newTestManager(t, Jobs{Invoices: expirer}, now)

	entry := m.Run(JobExpireInvoices, m.ExpirePendingInvoices)

	assert.Equal(t, model.CronStatusCompleted, entry.Status)
	assert.Equal(t, "Cancelled 4 expired invoices", entry.Message)
	assert.Equal(t, now, expirer.at)

	var stored model.CronJobLog
	require.NoError(t, m.db.First(&stored, entry.ID).Error)
	assert.Equal(t, JobExpireInvoices, stored.JobName)
	assert.Equal(t, model.CronStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.JSONEq(t, `{"cancelled":4}`, string(stored.Metadata))
}

func TestRunRecordsFailure(t *testing.T) {
	m := newTestManager(t, Jobs{Invoices: &fakeExpirer{err: errors.New("db down")}}, time.Now().UTC())

	entry := m.Run(JobExpireInvoices, m.ExpirePendingInvoices)

	assert.Equal(t, model.CronStatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorMsg, "db down")

	var stored model.CronJobLog
	require.NoError(t, m.db.First(&stored, entry.ID).Error)
	assert.Equal(t, model.CronStatusFailed, stored.Status)
}

func TestGenerateMonthlyRevenueCoversPreviousMonth(t *testing.T) {
	revenue := &fakeRevenue{}
	m := newTestManager(t, Jobs{Revenue: revenue}, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC))

	entry := m.Run(JobMonthlyRevenue, m.GenerateMonthlyRevenue)

	assert.Equal(t, model.CronStatusCompleted, entry.Status)
	assert.Equal(t, []string{"2023-12", "2024-01"}, revenue.months)
}

func TestCleanupExpiredTokens(t *testing.T) {
	m := newTestManager(t, Jobs{Tokens: fakeCleaner{}}, time.Now().UTC())

	entry := m.Run(JobCleanupBlacklist, m.CleanupExpiredTokens)
	assert.Equal(t, "Removed 3 expired blacklist entries", entry.Message)
}

func TestRegisterJobs(t *testing.T) {
	m := newTestManager(t, Jobs{}, time.Now().UTC())
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), 3)
}
