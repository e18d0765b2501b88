package logger

import (
	"fmt"
	"sync"
	"time"
)

// ScanTracker accumulates counters over a batch email scan and logs
// progress at intervals so long polling runs stay observable
type ScanTracker struct {
	logger      Logger
	operation   string
	processed   int64
	matched     int64
	duplicates  int64
	failures    int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewScanTracker creates a tracker for one scan run
func NewScanTracker(operation string, log Logger) *ScanTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	t := &ScanTracker{
		logger:      log.WithComponent("scan"),
		operation:   operation,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: 5 * time.Second,
	}
	t.logger.WithField("operation", operation).Info("Starting scan")
	return t
}

// Record counts one processed email and its outcome
func (t *ScanTracker) Record(matched, duplicate, failed bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.processed++
	if matched {
		t.matched++
	}
	if duplicate {
		t.duplicates++
	}
	if failed {
		t.failures++
	}

	now := time.Now()
	if now.Sub(t.lastLogTime) >= t.logInterval {
		t.logProgress(now)
		t.lastLogTime = now
	}
}

// Complete logs the final counters for the run
func (t *ScanTracker) Complete() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	duration := time.Since(t.startTime)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(t.processed) / duration.Seconds()
	}
	t.logger.WithFields(Fields{
		"operation":  t.operation,
		"processed":  t.processed,
		"matched":    t.matched,
		"duplicates": t.duplicates,
		"failures":   t.failures,
		"duration":   duration.String(),
		"rate":       fmt.Sprintf("%.2f/sec", rate),
	}).Info("Scan completed")
}

// Stats returns a snapshot of the counters
func (t *ScanTracker) Stats() ScanStats {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return ScanStats{
		Processed:  t.processed,
		Matched:    t.matched,
		Duplicates: t.duplicates,
		Failures:   t.failures,
		Duration:   time.Since(t.startTime),
	}
}

func (t *ScanTracker) logProgress(now time.Time) {
	duration := now.Sub(t.startTime)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(t.processed) / duration.Seconds()
	}
	t.logger.WithFields(Fields{
		"operation": t.operation,
		"processed": t.processed,
		"matched":   t.matched,
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}).Info("Scan progress")
}

// ScanStats contains scan counters
type ScanStats struct {
	Processed  int64         `json:"processed"`
	Matched    int64         `json:"matched"`
	Duplicates int64         `json:"duplicates"`
	Failures   int64         `json:"failures"`
	Duration   time.Duration `json:"duration"`
}

// String returns a human-readable summary
func (s ScanStats) String() string {
	return fmt.Sprintf("%d processed, %d matched, %d duplicates, %d failures in %v",
		s.Processed, s.Matched, s.Duplicates, s.Failures, s.Duration)
}

// TimedOperation executes a function and logs its outcome with timing
func TimedOperation(operation string, log Logger, fn func() error) error {
	if log == nil {
		log = GetGlobalLogger()
	}
	start := time.Now()
	err := fn()
	fields := Fields{
		"operation": operation,
		"duration":  time.Since(start).String(),
	}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Operation failed")
	} else {
		log.WithFields(fields).Info("Operation completed")
	}
	return err
}
