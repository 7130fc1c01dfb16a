package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrNoJob = errors.New("report function not set")

// Scheduler runs the daily usage report on a cron schedule (UTC).
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
}

func New(spec string, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		return ErrNoJob
	}
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))
	return nil
}

func (s *Scheduler) run() {
	s.logger.Info("daily report triggered")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
