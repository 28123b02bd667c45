package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/service"
)

const sweepTimeout = time.Minute

// Sweeper periodically removes orders left behind by failed checkouts:
// orders with no items or marked failed that are older than the orphan age.
type Sweeper struct {
	cron   *cron.Cron
	orders service.OrderService
	age    time.Duration
	log    logrus.FieldLogger
}

func NewSweeper(schedule string, orders service.OrderService, age time.Duration, log logrus.FieldLogger) (*Sweeper, error) {
	log = log.WithField("component", "sweeper")
	s := &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log)),
			cron.SkipIfStillRunning(cron.PrintfLogger(log)),
		)),
		orders: orders,
		age:    age,
		log:    log,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("sweeper schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.WithError(err).Error("sweep orphan orders")
	}
}

// RunOnce sweeps immediately with service-role access.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.orders.SweepOrphans(client.WithServiceRole(ctx), s.age)
	if n > 0 {
		s.log.WithField("count", n).Info("swept orphan orders")
	}
	return n, err
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep until ctx ends.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
