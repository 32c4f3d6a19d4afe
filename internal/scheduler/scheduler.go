// Package scheduler runs the calendar and sales scraping tasks, once or on an interval.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler repeats a task on a fixed interval until stopped
type Scheduler struct {
	runner   *Runner
	task     string
	upcoming bool
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(parent context.Context, runner *Runner, task string, upcoming bool, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		runner:   runner,
		task:     task,
		upcoming: upcoming,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the task immediately and then on every tick
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop cancels the running task and waits for the loop to exit
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Println("[INFO] Scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	if _, err := s.runner.Run(s.ctx, s.task, s.upcoming); err != nil && s.ctx.Err() == nil {
		log.Printf("[ERROR] scheduled %s task failed: %v", s.task, err)
	}
}
