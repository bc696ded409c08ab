// Package jobs は定期実行するメンテナンス処理をまとめる。
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StaleCanceller は loans.Service が満たす。
type StaleCanceller interface {
	CancelStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	cl := cronLogger{log: log.With("component", "cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, log: log}
}

// ExpireStaleApplications は schedule の周期で、olderThan より古い Open の申請を取り消す。
func (s *Scheduler) ExpireStaleApplications(schedule string, svc StaleCanceller, olderThan time.Duration) (cron.EntryID, error) {
	return s.cron.AddFunc(schedule, ExpireStale(svc, olderThan, time.Minute, s.log))
}

// ExpireStale は 1 回分の処理。timeout を過ぎたら打ち切る。
func ExpireStale(svc StaleCanceller, olderThan, timeout time.Duration, log *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		n, err := svc.CancelStale(ctx, olderThan)
		if err != nil {
			log.Error("expire stale applications", "err", err)
			return
		}
		log.Info("expire stale applications",
			"cancelled", n,
			"older_than", olderThan.String(),
			"took_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop は実行中のジョブが終わるか ctx が切れるまで待つ。
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("cron stop timed out")
	}
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// cronLogger は cron.Logger を slog に流す
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...any) { l.log.Debug(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, append(kv, "err", err)...)
}
