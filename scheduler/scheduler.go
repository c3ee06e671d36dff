package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"github.com/jbrpriv/RentifyPro-sub000/config"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/sweep"
)

// Scheduler owns the three daily triggers: reminders in the morning, the
// late-fee assessment slightly later, the expiry sweep at midnight. Clock
// times come from config; the sweeps themselves are idempotent, so running
// one twice by hand does no harm.
type Scheduler struct {
	c *cron.Cron
}

func Start(db *sqlx.DB, queue *notification.Queue, cfg config.Config) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.ReminderCron, func() {
		if err := sweep.RunReminders(db, queue, time.Now(), cfg.ReminderDays, cfg.ExpiryWarningDays); err != nil {
			log.Printf("WARN: [Scheduler] Reminder sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reminder cron %q: %w", cfg.ReminderCron, err)
	}

	_, err = c.AddFunc(cfg.LateFeeCron, func() {
		if err := sweep.RunLateFees(db, queue, time.Now()); err != nil {
			log.Printf("WARN: [Scheduler] Late-fee sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid late-fee cron %q: %w", cfg.LateFeeCron, err)
	}

	_, err = c.AddFunc(cfg.ExpiryCron, func() {
		if err := sweep.RunExpiry(db, time.Now()); err != nil {
			log.Printf("WARN: [Scheduler] Expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid expiry cron %q: %w", cfg.ExpiryCron, err)
	}

	c.Start()
	log.Printf("INFO: [Scheduler] Daily sweeps scheduled (reminders %q, late fees %q, expiry %q).",
		cfg.ReminderCron, cfg.LateFeeCron, cfg.ExpiryCron)
	return &Scheduler{c: c}, nil
}

func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
	log.Println("INFO: [Scheduler] Stopped.")
}
