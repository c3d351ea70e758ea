package retention

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Sweeper prunes expired report session directories on a cron schedule.
// Every generated report lives under <mediaDir>/generated/<session>/; a
// session whose newest file is older than the retention window is removed
// whole.
type Sweeper struct {
	mediaDir string
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

func New(mediaDir, schedule string, maxAgeDays int) *Sweeper {
	return &Sweeper{
		mediaDir: mediaDir,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
		now:      time.Now,
	}
}

// Start registers the sweep with the cron ticker and starts it.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		removed, err := s.Sweep()
		if err != nil {
			slog.Error("retention sweep failed", "error", err)
			return
		}
		if removed > 0 {
			slog.Info("retention sweep removed sessions", "count", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	slog.Info("retention sweeper started", "schedule", s.schedule, "max_age", s.maxAge)
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep removes expired session directories and returns how many were
// deleted. A session with any file younger than the window survives.
func (s *Sweeper) Sweep() (int, error) {
	root := filepath.Join(s.mediaDir, "generated")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read generated dir: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		newest, err := newestModTime(dir)
		if err != nil {
			slog.Warn("skipping unreadable session dir", "dir", dir, "error", err)
			continue
		}
		if newest.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove expired session", "dir", dir, "error", err)
			continue
		}
		slog.Info("removed expired session", "session", entry.Name(), "newest_file", newest)
		removed++
	}
	return removed, nil
}

// newestModTime walks the session directory and returns the most recent
// modification time found, starting from the directory's own.
func newestModTime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	newest := info.ModTime()
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return newest, nil
}
