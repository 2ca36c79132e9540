package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redteam-academy/api/model"
)

const (
	// cronLogRetention is how long completed cron log rows are kept
	cronLogRetention = 30 * 24 * time.Hour
	// jobTimeout bounds a single job run
	jobTimeout = 5 * time.Minute
)

// CleanupExpiredBlacklistTokens removes blacklist rows whose tokens have
// already expired. Expired tokens fail validation anyway, this just keeps
// the table small.
func (m *CronManager) CleanupExpiredBlacklistTokens() {
	jobName := "cleanup_expired_blacklist_tokens"

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := m.blacklist.CleanupExpiredTokens(ctx); err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, "expired blacklist tokens removed")
}

// CleanupOldCronLogs prunes cron job log rows past the retention window
func (m *CronManager) CleanupOldCronLogs() {
	jobName := "cleanup_old_cron_logs"

	cutoff := time.Now().Add(-cronLogRetention)
	result := m.db.Unscoped().
		Where("created_at < ? AND status IN ?", cutoff, []string{"completed", "failed"}).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("removed %d old cron log rows", result.RowsAffected))
}

// SweepStaleSessionLocks deletes chat session locks that outlived their
// holder. Lock keys carry a TTL already; the sweep covers Redis setups
// with persistence quirks where a TTL-less lock key could survive.
func (m *CronManager) SweepStaleSessionLocks() {
	jobName := "sweep_stale_session_locks"

	if m.cache == nil {
		m.logJobComplete(jobName, "redis not configured, skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	keys, err := m.cache.Keys(ctx, "chat:session:lock:*")
	if err != nil {
		m.logJobError(jobName, err)
		return
	}
	if len(keys) == 0 {
		m.logJobComplete(jobName, "no session locks held")
		return
	}

	// Batch the TTL checks in one round trip
	pipe := m.cache.GetClient().Pipeline()
	ttls := make([]*redis.DurationCmd, len(keys))
	for i, key := range keys {
		ttls[i] = pipe.TTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.logJobError(jobName, err)
		return
	}

	removed := 0
	for i, cmd := range ttls {
		// TTL of -1 means no expiration was set; such a lock can never
		// release on its own
		if cmd.Val() < 0 {
			if err := m.cache.Delete(ctx, keys[i]); err == nil {
				removed++
			}
		}
	}

	m.logJobComplete(jobName, fmt.Sprintf("removed %d stale session locks", removed))
}
