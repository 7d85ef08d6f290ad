// Package retention purges expired session and MFA tokens and old login audits.
package retention

import (
	"context"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxDeleteBatchesPerRun = 2000

// Cleaner periodically deletes rows that no request can use anymore.
type Cleaner struct {
	db             *gorm.DB
	interval       time.Duration
	batchSize      int
	loginAuditDays int
	now            func() time.Time
}

// NewCleaner constructs a Cleaner. It returns nil when db is nil.
func NewCleaner(db *gorm.DB, cfg config.RetentionConfig) *Cleaner {
	if db == nil {
		return nil
	}
	interval := cfg.Interval()
	if interval <= 0 {
		interval = time.Hour
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Cleaner{
		db:             db,
		interval:       interval,
		batchSize:      batchSize,
		loginAuditDays: cfg.LoginAuditDays,
		now:            time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *Cleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("retention cleaner started (interval=%s)", c.interval)
}

func (c *Cleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.CleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Result counts the rows removed by one cleanup run.
type Result struct {
	MFATokens   int64
	MFACodes    int64
	AuthTokens  int64
	LoginAudits int64
}

// CleanupOnce runs a single pass over every table.
func (c *Cleaner) CleanupOnce(ctx context.Context) Result {
	var out Result
	now := c.now().UTC()

	// Codes go first: they reference tokens by value.
	out.MFACodes = c.drain(ctx, "mfa codes", `
		DELETE FROM mfa_codes
		WHERE id IN (
			SELECT id FROM mfa_codes
			WHERE token IN (SELECT token FROM mfa_tokens WHERE expire_at <= ?)
			LIMIT ?
		)
	`, now)
	out.MFATokens = c.drain(ctx, "mfa tokens", `
		DELETE FROM mfa_tokens
		WHERE token IN (
			SELECT token FROM mfa_tokens
			WHERE expire_at <= ?
			LIMIT ?
		)
	`, now)
	out.AuthTokens = c.drain(ctx, "auth tokens", `
		DELETE FROM auth_tokens
		WHERE id IN (
			SELECT id FROM auth_tokens
			WHERE expiry <= ?
			LIMIT ?
		)
	`, now)
	if c.loginAuditDays > 0 {
		cutoff := now.AddDate(0, 0, -c.loginAuditDays)
		out.LoginAudits = c.drain(ctx, "login audits", `
			DELETE FROM login_audits
			WHERE id IN (
				SELECT id FROM login_audits
				WHERE created_at < ?
				ORDER BY created_at ASC
				LIMIT ?
			)
		`, cutoff)
	}

	if out != (Result{}) {
		log.WithFields(log.Fields{
			"mfa_tokens":   out.MFATokens,
			"mfa_codes":    out.MFACodes,
			"auth_tokens":  out.AuthTokens,
			"login_audits": out.LoginAudits,
		}).Info("retention cleaner: purged rows")
	}
	return out
}

// drain repeats a limited delete until it stops removing rows.
func (c *Cleaner) drain(ctx context.Context, name, query string, cutoff time.Time) int64 {
	var total int64
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return total
		}
		res := c.db.WithContext(ctx).Exec(query, cutoff, c.batchSize)
		if res.Error != nil {
			log.WithError(res.Error).WithField("table", name).Warn("retention cleaner: delete batch failed")
			return total
		}
		if res.RowsAffected <= 0 {
			return total
		}
		total += res.RowsAffected
	}
	return total
}
