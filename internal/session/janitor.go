package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lojasmm/washbot/internal/store"
)

const (
	lockIdleAge        = 1 * time.Hour
	processedRetention = 48 * time.Hour
	sweepTimeout       = 30 * time.Second
)

// Janitor periodically drops idle per-phone locks, sessions idle past the
// retention period and old processed-message ids.
type Janitor struct {
	manager   *Manager
	sessions  store.SessionStore
	processed store.ProcessedLog
	retention time.Duration
	now       func() time.Time
}

func NewJanitor(m *Manager, sessions store.SessionStore, processed store.ProcessedLog, retention time.Duration) *Janitor {
	return &Janitor{
		manager:   m,
		sessions:  sessions,
		processed: processed,
		retention: retention,
		now:       time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 30m".
// The caller stops the returned scheduler on shutdown.
func (j *Janitor) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		j.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("scheduling janitor %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func (j *Janitor) Sweep(ctx context.Context) {
	now := j.now()

	if n := j.manager.Cleanup(lockIdleAge); n > 0 {
		log.Printf("janitor: released %d idle locks, %d still tracked", n, j.manager.Len())
	}

	if j.retention > 0 {
		n, err := j.sessions.DeleteSessionsBefore(ctx, now.Add(-j.retention))
		if err != nil {
			log.Printf("janitor: deleting idle sessions: %v", err)
		} else if n > 0 {
			log.Printf("janitor: deleted %d idle sessions", n)
		}
	}

	if n, err := j.processed.PurgeProcessedBefore(ctx, now.Add(-processedRetention)); err != nil {
		log.Printf("janitor: purging processed ids: %v", err)
	} else if n > 0 {
		log.Printf("janitor: purged %d processed ids", n)
	}
}
