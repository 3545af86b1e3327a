package cron

import (
	"context"
	"fmt"
	"time"
)

// ExpirePendingInvoices cancels invoices left unpaid past their window
func (m *CronManager) ExpirePendingInvoices(ctx context.Context) (string, map[string]interface{}, error) {
	count, err := m.jobs.Invoices.ExpirePending(ctx, m.now())
	if err != nil {
		return "invoice expiry failed", nil, fmt.Errorf("failed to expire invoices: %w", err)
	}
	return fmt.Sprintf("Cancelled %d expired invoices", count), map[string]interface{}{"cancelled": count}, nil
}

// GenerateMonthlyRevenue refreshes the current and previous month so late
// callbacks and approvals on the 1st still land in last month's rollup
func (m *CronManager) GenerateMonthlyRevenue(ctx context.Context) (string, map[string]interface{}, error) {
	now := m.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previous := current.AddDate(0, -1, 0)

	generated := []string{}
	for _, month := range []time.Time{previous, current} {
		if _, err := m.jobs.Revenue.GenerateMonthly(ctx, month.Year(), month.Month()); err != nil {
			return "revenue generation failed", map[string]interface{}{"generated": generated},
				fmt.Errorf("failed to generate revenue for %s: %w", month.Format("2006-01"), err)
		}
		generated = append(generated, month.Format("2006-01"))
	}
	return fmt.Sprintf("Generated revenue for %d months", len(generated)), map[string]interface{}{"generated": generated}, nil
}

// CleanupExpiredTokens deletes blacklist rows for tokens that can no longer validate
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, map[string]interface{}, error) {
	deleted, err := m.jobs.Tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		return "token cleanup failed", nil, fmt.Errorf("failed to clean up blacklist: %w", err)
	}
	return fmt.Sprintf("Removed %d expired blacklist entries", deleted), map[string]interface{}{"deleted": deleted}, nil
}
