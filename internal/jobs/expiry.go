// Package jobs は定期実行する処理。
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PendingExpirer はPendingのまま放置された注文を取り消す。
type PendingExpirer interface {
	ExpireStalePending(ctx context.Context, ttl time.Duration, batch int) (int, error)
}

type ExpiryJob struct {
	expirer PendingExpirer
	ttl     time.Duration
	batch   int
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewExpiryJob(expirer PendingExpirer, ttl time.Duration, log logrus.FieldLogger) *ExpiryJob {
	return &ExpiryJob{expirer: expirer, ttl: ttl, batch: 100, timeout: 30 * time.Second, log: log}
}

// Run は1回分。cronから呼ばれる。
func (j *ExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.expirer.ExpireStalePending(ctx, j.ttl, j.batch)
	if err != nil {
		j.log.WithError(err).WithField("expired", n).Error("pending order expiry failed")
		return
	}
	if n > 0 {
		j.log.WithField("expired", n).Info("expired pending orders")
	}
}

// Scheduler はcronのラッパー。前回が終わっていなければ次はスキップする。
type Scheduler struct {
	c *cron.Cron
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	logger := cron.PrintfLogger(log)
	return &Scheduler{c: cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))}
}

func (s *Scheduler) Add(spec string, job cron.Job) error {
	_, err := s.c.AddJob(spec, job)
	return err
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop は実行中のジョブを待つ。
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
