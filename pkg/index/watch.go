package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"
)

// settle is how long the library must be quiet before a rescan starts.
var settle = 2 * time.Second

// Watch rescans the library whenever it changes, until ctx is done.
func Watch(ctx context.Context, s *Scanner) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs, err := subdirs(s.root)
	if err != nil {
		return fmt.Errorf("subdirs: %w", err)
	}
	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name)[0] == '.' {
				continue
			}
			klog.V(1).Infof("event: %s", event)
			if event.Has(fsnotify.Create) {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					if err := w.Add(event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(settle)
			}
		case <-timer.C:
			if _, err := s.Scan(ctx); err != nil {
				klog.Errorf("rescan failed: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

func subdirs(root string) ([]string, error) {
	dirs := []string{}
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}
			dirs = append(dirs, path)
			return nil
		},
	})
	return dirs, err
}

// Schedule rescans the library on a cron spec such as "@every 1h" or "0 3 * * *".
// Stop the returned cron to end the schedule.
func Schedule(ctx context.Context, spec string, s *Scanner) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Scan(ctx); err != nil {
			klog.Errorf("scheduled rescan failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("parse %q: %w", spec, err)
	}
	c.Start()
	klog.Infof("rescanning %s on schedule %q", s.root, spec)
	return c, nil
}
