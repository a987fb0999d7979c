package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Days converts a retention window in whole days to a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// CleanResult summarizes a retention run.
type CleanResult struct {
	// Cleaned counts files that were deleted.
	Cleaned int
	// Failed counts files that could not be inspected or deleted.
	Failed int
}

// Clean deletes backup and version files, in every group, whose modification
// time is more than keep in the past. Canonical files are never touched. A
// file that cannot be inspected or removed is recorded and skipped; the
// returned error aggregates those failures while the result still carries the
// number of files that were removed.
func (s *Store) Clean(ctx context.Context, keep time.Duration) (CleanResult, error) {
	var result CleanResult
	if keep < 0 {
		return result, fmt.Errorf("vault: retention window cannot be negative: %v", keep)
	}

	groups, err := s.List()
	if err != nil {
		return result, err
	}

	var errs *multierror.Error
	now := s.now()
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		cleaned, groupErrs := s.cleanGroup(filepath.Join(s.root, group), now, keep)
		result.Cleaned += cleaned
		if groupErrs != nil {
			result.Failed += groupErrs.Len()
			errs = multierror.Append(errs, groupErrs.Errors...)
		}
	}

	if result.Cleaned > 0 || errs != nil {
		s.logger.Info("vault: retention run finished",
			"cleaned", result.Cleaned,
			"failed", result.Failed,
			"keep", keep)
	}
	return result, errs.ErrorOrNil()
}

func (s *Store) cleanGroup(dir string, now time.Time, keep time.Duration) (int, *multierror.Error) {
	unlock := s.lock(dir)
	defer unlock()

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, multierror.Append(nil, fmt.Errorf("vault: read group %s: %w", dir, err))
	}

	var (
		cleaned int
		errs    *multierror.Error
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch Classify(e.Name()) {
		case KindBackup, KindVersion:
		default:
			continue
		}

		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = multierror.Append(errs, fmt.Errorf("vault: stat %s: %w", path, err))
			}
			continue
		}
		if now.Sub(info.ModTime()) <= keep {
			continue
		}
		if err := s.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierror.Append(errs, fmt.Errorf("vault: remove %s: %w", path, err))
			continue
		}
		s.logger.Debug("vault: removed expired file", "path", path, "modified", info.ModTime())
		cleaned++
	}
	return cleaned, errs
}
