package motion

import (
	"context"
	"log"
	"time"
)

// RunWatchdog stops the motors whenever commands stop arriving while any
// wheel is still being driven. It ticks at half the timeout so a stall is
// caught no later than 1.5x the timeout after the last command. Blocks until
// ctx is cancelled.
func (c *Controller) RunWatchdog(ctx context.Context) {
	ticker := time.NewTicker(c.timeout / 2)
	defer ticker.Stop()

	log.Println("motor watchdog started")
	for {
		select {
		case <-ctx.Done():
			log.Println("motor watchdog stopped")
			return
		case <-ticker.C:
			c.watchdogTick()
		}
	}
}

// watchdogTick checks elapsed time since the last accepted command and forces
// a stop if it exceeds the timeout while any motor is running. The check
// snapshots state first and calls StopAll outside that critical section, so
// it takes the same lock path a client stop would. A command accepted between
// the snapshot and StopAll gets stopped along with the stale ones; any client
// still alive re-sends within a command period, so the stutter is bounded and
// preferred over holding the lock across the hardware calls.
func (c *Controller) watchdogTick() {
	c.mu.Lock()
	if c.estopped {
		c.mu.Unlock()
		return
	}
	elapsed := c.now().Sub(c.lastCommand)
	moving := false
	for _, s := range c.speeds {
		if s != 0 {
			moving = true
			break
		}
	}
	c.mu.Unlock()

	if elapsed > c.timeout && moving {
		log.Printf("WARNING: watchdog timeout (%.2fs), stopping motors", elapsed.Seconds())
		c.StopAll()
	}
}
