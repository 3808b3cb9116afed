// Package partition keeps monthly range partitions of the messages table
// ahead of the clock.
package partition

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const parentTable = "messages"

// Execer is satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Partition is one month of messages: [From, To) in UTC.
type Partition struct {
	Name string
	From time.Time
	To   time.Time
}

// DDL creates the partition unless it already exists.
func (p Partition) DDL() string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
		p.Name, parentTable, p.From.Format(time.RFC3339), p.To.Format(time.RFC3339),
	)
}

// Plan returns the partition holding now followed by the next ahead months.
func Plan(now time.Time, ahead int) []Partition {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	parts := make([]Partition, 0, ahead+1)
	for i := 0; i <= ahead; i++ {
		from := start.AddDate(0, i, 0)
		parts = append(parts, Partition{
			Name: fmt.Sprintf("%s_y%04dm%02d", parentTable, from.Year(), int(from.Month())),
			From: from,
			To:   from.AddDate(0, 1, 0),
		})
	}
	return parts
}

type Maintainer struct {
	db      Execer
	ahead   int
	now     func() time.Time
	metrics *observ.Metrics
	logger  *zap.Logger
}

func NewMaintainer(db Execer, monthsAhead int, metrics *observ.Metrics, logger *zap.Logger) *Maintainer {
	return &Maintainer{
		db:      db,
		ahead:   monthsAhead,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
}

// Ensure creates any missing partition in the current window. It stops at
// the first failure; partitions created before it are kept.
func (m *Maintainer) Ensure(ctx context.Context) (err error) {
	defer func() { m.metrics.PartitionsEnsured.WithLabelValues(observ.Result(err)).Inc() }()

	for _, p := range Plan(m.now(), m.ahead) {
		if _, err := m.db.Exec(ctx, p.DDL()); err != nil {
			return fmt.Errorf("create partition %s: %w", p.Name, err)
		}
	}
	return nil
}

// Run ensures partitions once, then again on every tick of schedule (a
// standard five-field cron spec, evaluated in UTC) until ctx is done.
func (m *Maintainer) Run(ctx context.Context, schedule string) error {
	if err := m.Ensure(ctx); err != nil {
		m.logger.Error("partition maintenance failed", zap.Error(err))
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() {
		if err := m.Ensure(ctx); err != nil {
			m.logger.Error("partition maintenance failed", zap.Error(err))
			return
		}
		m.logger.Info("message partitions ensured", zap.Int("months_ahead", m.ahead))
	}); err != nil {
		return fmt.Errorf("schedule partition maintenance: %w", err)
	}

	c.Start()
	m.logger.Info("partition maintainer started", zap.String("schedule", schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	m.logger.Info("partition maintainer stopped")
	return nil
}
