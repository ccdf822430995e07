package index

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/pkg/logger"
)

const fileChangeDebounceDelay = 200 * time.Millisecond

// changeFunc receives the debounced change set; removed lists paths that
// disappeared since the last call.
type changeFunc func(ctx context.Context, removed []string)

// watchRoots returns the directories to watch for the given inputs.
func watchRoots(inputs []string) ([]string, error) {
	roots := make([]string, 0, len(inputs))
	for _, input := range inputs {
		root := input
		if strings.ContainsAny(input, "*?[{") {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(input))
			root = filepath.FromSlash(base)
		} else if !helpers.DirExists(input) {
			root = filepath.Dir(input)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve watch root %s: %w", root, err)
		}
		roots = append(roots, abs)
	}
	slices.Sort(roots)
	return slices.Compact(roots), nil
}

// watchInputs calls onChange after matching files under roots change,
// once per quiet period of debounce. It returns when ctx is done.
func watchInputs(
	ctx context.Context,
	roots []string,
	match func(path string) bool,
	debounce time.Duration,
	onChange changeFunc,
) error {
	log := logger.FromContext(ctx)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	for _, root := range roots {
		if err := addTree(watcher, root); err != nil {
			return err
		}
	}
	log.Info("Watching for document changes", "roots", roots, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	removed := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Context canceled, stopping file watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if helpers.DirExists(event.Name) {
					if err := addTree(watcher, event.Name); err != nil {
						log.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !match(event.Name) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				removed[event.Name] = struct{}{}
			} else {
				delete(removed, event.Name)
			}
			log.Debug("Detected document change, debouncing...", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		case <-timer.C:
			paths := slices.Sorted(maps.Keys(removed))
			clear(removed)
			onChange(ctx, paths)
		}
	}
}

// addTree watches root and every non-hidden directory below it.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
