package worker

import (
	"fmt"
	"time"
)

// Config tunes the job worker.
type Config struct {
	Concurrency  int           // goroutines polling the queue
	PollInterval time.Duration // idle delay between polls
	JobTimeout   time.Duration // per-job deadline

	// ShutdownTimeout bounds how long Stop waits for running jobs.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age after which a job still marked running
	// is assumed abandoned and put back in the queue on startup.
	StaleJobThreshold time.Duration

	// SessionPurgeInterval is how often expired sessions are swept.
	SessionPurgeInterval time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
// Thumbnail jobs are small, so the queue is polled often.
func DefaultConfig() Config {
	return Config{
		Concurrency:          2,
		PollInterval:         2 * time.Second,
		JobTimeout:           2 * time.Minute,
		ShutdownTimeout:      30 * time.Second,
		StaleJobThreshold:    10 * time.Minute,
		SessionPurgeInterval: time.Hour,
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	case c.Concurrency > 100:
		return fmt.Errorf("concurrency too high (max 100), got %d", c.Concurrency)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	case c.JobTimeout < time.Second:
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	case c.ShutdownTimeout < time.Second:
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	case c.StaleJobThreshold < time.Minute:
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	case c.SessionPurgeInterval < time.Minute:
		return fmt.Errorf("session purge interval must be at least 1 minute, got %v", c.SessionPurgeInterval)
	}
	return nil
}
