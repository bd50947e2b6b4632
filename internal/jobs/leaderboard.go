package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/interview"
)

// Leaderboard periodically recomputes the public-interview ranking so
// the listing endpoint does not fan out one rating aggregation per
// interview on every request.
type Leaderboard struct {
	interviews *interview.Service
	schedule   string
	logger     *zap.Logger
	cron       *cron.Cron

	mu        sync.RWMutex
	entries   []interview.Ranked
	refreshed time.Time
}

func NewLeaderboard(interviews *interview.Service, schedule string, logger *zap.Logger) *Leaderboard {
	return &Leaderboard{
		interviews: interviews,
		schedule:   schedule,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start refreshes once immediately, then on the configured schedule.
func (l *Leaderboard) Start() error {
	_, err := l.cron.AddFunc(l.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := l.Refresh(ctx); err != nil {
			l.logger.Error("leaderboard refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := l.Refresh(ctx); err != nil {
			l.logger.Error("initial leaderboard refresh failed", zap.Error(err))
		}
	}()

	l.cron.Start()
	l.logger.Info("leaderboard refresh scheduled", zap.String("schedule", l.schedule))
	return nil
}

func (l *Leaderboard) Stop() {
	if l.cron != nil {
		l.cron.Stop()
	}
}

// Refresh recomputes the full ranking (no exclusions, no limit); request
// handlers filter the snapshot per caller.
func (l *Leaderboard) Refresh(ctx context.Context) error {
	entries, err := l.interviews.Latest(ctx, bson.NilObjectID, 0)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.entries = entries
	l.refreshed = time.Now()
	l.mu.Unlock()

	l.logger.Debug("leaderboard refreshed", zap.Int("entries", len(entries)))
	return nil
}

// Snapshot returns the cached ranking and whether a refresh has
// completed yet. Callers must not mutate the returned slice elements'
// shared data.
func (l *Leaderboard) Snapshot() ([]interview.Ranked, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries, !l.refreshed.IsZero()
}
