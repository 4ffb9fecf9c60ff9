package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch submits render requests dropped as JSON files into a spool
// directory. Existing files are swept on startup, then fsnotify drives the
// rest. Consumed files are renamed with a .done suffix; rejected ones with
// .err.
func (o *Orchestrator) Watch(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	// Initial sweep for requests that arrived before the watcher.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			o.consumeSpoolFile(filepath.Join(dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Give the writer a moment to finish the file.
			time.Sleep(100 * time.Millisecond)
			o.consumeSpoolFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Warn("spool watcher error", "error", err)
		}
	}
}

func (o *Orchestrator) consumeSpoolFile(path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		o.logger.Warn("spool read failed", "file", filepath.Base(path), "error", err)
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		o.logger.Warn("spool request malformed", "file", filepath.Base(path), "error", err)
		_ = os.Rename(path, path+".err")
		return
	}
	id, err := o.Submit(req)
	if err != nil {
		o.logger.Warn("spool request rejected", "file", filepath.Base(path), "error", err)
		_ = os.Rename(path, path+".err")
		return
	}
	o.logger.Info("spool request queued", "file", filepath.Base(path), "job", id)
	_ = os.Rename(path, path+".done")
}
