package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settle is how long a file has to stay quiet before it is analyzed again,
// so that an editor's burst of writes counts as one change.
const settle = 100 * time.Millisecond

// Watch analyzes the automata under paths again whenever they are written,
// handing every report to onReport, until ctx is done.
func (a *Analyzer) Watch(ctx context.Context, paths []string, onReport func(*Report)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	explicit := make(map[string]bool)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			explicit[filepath.Clean(path)] = true
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return watcher.Add(p)
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	wanted := func(name string) bool {
		if len(explicit) > 0 && explicit[filepath.Clean(name)] {
			return true
		}
		if strings.HasPrefix(filepath.Base(name), ".") || !hasDesiredExtension(name) {
			return false
		}
		if len(explicit) > 0 && len(explicit) == len(paths) {
			// only single files were asked for
			return false
		}
		return true
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	a.logger.Info("watching for changes", zap.Strings("paths", paths))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !wanted(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			clear(pending)
			sort.Strings(files)

			for _, f := range files {
				report, err := a.AnalyzeFile(ctx, f)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if err != nil {
					a.logger.Error("Error processing file", zap.String("file", f), zap.Error(err))
					continue
				}
				onReport(report)
			}
		}
	}
}
