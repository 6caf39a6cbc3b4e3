package server

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/vango-dev/uiregistry/internal/registry"
)

// debounce collapses bursts of file events, such as an editor saving
// through a temp file, into one reload.
const debounce = 100 * time.Millisecond

// watchDir returns the directory to watch, or "" when the registry is not
// a watched local directory.
func (s *Server) watchDir() string {
	if !s.cfg.Registry.Watch || s.cfg.Registry.S3.Enabled() {
		return ""
	}
	src, ok := s.registry.Source().(*registry.FSSource)
	if !ok {
		return ""
	}
	return src.Dir()
}

// watch reloads the registry when registry.json or anything below the
// files directory changes.
func (s *Server) watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		s.logger.Error("failed to watch registry directory", "dir", dir, "error", err)
		return nil
	}
	if err := watchDirRecursive(watcher, filepath.Join(dir, registry.FilesDir)); err != nil {
		s.logger.Warn("failed to watch registry files", "error", err)
	}
	s.logger.Info("watching registry", "dir", dir)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(dir, event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				_ = watchDirRecursive(watcher, event.Name)
			}
			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(debounce, func() {
				s.reload(ctx, "file changed: "+name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether event touches the manifest or a registry file.
func relevant(dir string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(dir, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == registry.ManifestName || strings.HasPrefix(rel, registry.FilesDir+"/")
}

// watchDirRecursive adds root and every directory below it.
func watchDirRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// refresh reloads the registry on a cron schedule until ctx is done.
func (s *Server) refresh(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		s.reload(ctx, "scheduled")
	}); err != nil {
		return fmt.Errorf("registry.refresh %q: %w", spec, err)
	}

	s.logger.Info("scheduled registry refresh", "spec", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
