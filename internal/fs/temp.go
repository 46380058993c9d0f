package fs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// TempFile creates an empty file next to target. The commit writes there
// and swaps it in once the engine succeeded.
func (f *FS) TempFile(target, dir string) (afero.File, error) {
	if dir == "" {
		dir = filepath.Dir(target)
	}
	if err := f.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	name := filepath.Join(dir, "."+filepath.Base(target)+"."+uuid.NewString()+".tmp")
	file, err := f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// Swap renames tmp over target. Renames fail transiently on some platforms
// while a reader still holds the target, so they are retried.
func (f *FS) Swap(tmp, target string) error {
	err := retry.Do(
		func() error {
			return f.Rename(tmp, target)
		},
		retry.Attempts(5),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("retry %d renaming %s: %+v", n+1, tmp, err)
		}),
	)
	if err != nil {
		return errors.WithMessagef(err, "failed to replace %s", target)
	}
	return nil
}

// Discard removes a temp file, logging instead of failing.
func (f *FS) Discard(tmp string) {
	if err := f.Remove(tmp); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove temp file %s: %+v", tmp, err)
	}
}

// SwapAll replaces every target with its temp file. Existing targets are
// moved aside first and restored when any rename fails, so the set is
// either fully replaced or left as it was.
func (f *FS) SwapAll(temps, targets []string) error {
	var backups, moved []string
	restore := func() {
		for _, t := range moved {
			f.Discard(t)
		}
		for i, b := range backups {
			if b == "" {
				continue
			}
			if err := f.Swap(b, targets[i]); err != nil {
				log.Errorf("failed to restore %s from %s: %+v", targets[i], b, err)
			}
		}
	}
	for _, target := range targets {
		if !f.Exists(target) {
			backups = append(backups, "")
			continue
		}
		b := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+"."+uuid.NewString()+".bak")
		if err := f.Swap(target, b); err != nil {
			restore()
			return err
		}
		backups = append(backups, b)
	}
	for i := range temps {
		if err := f.Swap(temps[i], targets[i]); err != nil {
			for _, t := range temps[i:] {
				f.Discard(t)
			}
			restore()
			return err
		}
		moved = append(moved, targets[i])
	}
	for _, b := range backups {
		if b != "" {
			f.Discard(b)
		}
	}
	return nil
}
