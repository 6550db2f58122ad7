package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const (
	reportDay  = 1
	reportHour = 8
)

// ReportRunner builds the monthly report for the month before now.
type ReportRunner interface {
	RunScheduled(ctx context.Context, now time.Time) (*entity.MonthlyReport, error)
}

// ReportScheduler fires the monthly report on day 1 from 08:00 local time.
// The runner skips periods that already have a report, so restarts are safe.
type ReportScheduler struct {
	runner       ReportRunner
	location     *time.Location
	tickInterval time.Duration
	now          func() time.Time
	lastRun      string
	logger       *slog.Logger
}

func NewReportScheduler(runner ReportRunner, loc *time.Location) *ReportScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportScheduler{
		runner:       runner,
		location:     loc,
		tickInterval: time.Minute,
		now:          time.Now,
		logger:       log.WithComponent("report_scheduler"),
	}
}

// Start blocks until ctx is cancelled.
func (s *ReportScheduler) Start(ctx context.Context) {
	s.logger.Info("report scheduler started",
		slog.String("timezone", s.location.String()),
		slog.Int("day", reportDay),
		slog.Int("hour", reportHour),
	)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("report scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *ReportScheduler) tick(ctx context.Context) {
	now := s.now().In(s.location)
	key, due := dueKey(now)
	if !due || key == s.lastRun {
		return
	}

	report, err := s.runner.RunScheduled(ctx, now)
	if err != nil {
		// retried on the next tick
		s.logger.Error("scheduled report failed", slog.String("error", err.Error()))
		return
	}
	s.lastRun = key
	if report != nil {
		s.logger.Info("scheduled report sent",
			slog.String("report_id", report.ID),
			slog.String("periode", report.Periode.Title()),
		)
	}
}

// dueKey reports whether now falls in the run window and names the run it belongs to.
func dueKey(now time.Time) (string, bool) {
	if now.Day() != reportDay || now.Hour() < reportHour {
		return "", false
	}
	return now.Format("2006-01"), true
}
