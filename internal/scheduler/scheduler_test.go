package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStart_RequiresReportFunction(t *testing.T) {
	s := New("0 21 * * *", zap.NewNop())
	if err := s.Start(); !errors.Is(err, ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler without job must not be running")
	}
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := New("every day please", zap.NewNop())
	s.SetReportFunction(func(context.Context) error { return nil })
	if err := s.Start(); err == nil {
		t.Fatalf("expected cron parse error")
	}
}

func TestRun_InvokesReport(t *testing.T) {
	s := New("0 21 * * *", zap.NewNop())
	calls := 0
	s.SetReportFunction(func(ctx context.Context) error {
		calls++
		return errors.New("logged, not fatal")
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected registered entry")
	}
	s.run()
	s.Stop()
	if calls != 1 {
		t.Fatalf("want 1 call, got %d", calls)
	}
}
