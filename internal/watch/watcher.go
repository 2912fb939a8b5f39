package watch

import (
	"context"
	"feedbacklens/internal/model"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Index keeps the list of CSV datasets in the raw data directory current.
type Index struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	datasets map[string]model.Dataset
}

func New(dir string, logger *zap.Logger) *Index {
	return &Index{dir: dir, logger: logger, datasets: make(map[string]model.Dataset)}
}

// Backfill indexes the files already present.
func (i *Index) Backfill() error {
	entries, err := filepath.Glob(filepath.Join(i.dir, "*"))
	if err != nil {
		return err
	}
	found := make(map[string]model.Dataset, len(entries))
	for _, e := range entries {
		if ds, ok := stat(e); ok {
			found[ds.Name] = ds
		}
	}
	i.mu.Lock()
	i.datasets = found
	i.mu.Unlock()
	return nil
}

// Start watches the directory until ctx is done. Call Backfill first.
func (i *Index) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(i.dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				i.handle(evt)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				i.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (i *Index) handle(evt fsnotify.Event) {
	if !isCSV(evt.Name) {
		return
	}
	name := filepath.Base(evt.Name)
	switch {
	case evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		i.Remove(name)
	case evt.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if ds, ok := stat(evt.Name); ok {
			i.Put(ds)
			i.logger.Debug("dataset indexed", zap.String("name", ds.Name), zap.Int64("size", ds.Size))
		}
	}
}

// Put records a dataset, e.g. right after an upload.
func (i *Index) Put(ds model.Dataset) {
	i.mu.Lock()
	i.datasets[ds.Name] = ds
	i.mu.Unlock()
}

func (i *Index) Remove(name string) {
	i.mu.Lock()
	delete(i.datasets, name)
	i.mu.Unlock()
}

// List returns the datasets sorted by name.
func (i *Index) List() []model.Dataset {
	i.mu.RLock()
	out := make([]model.Dataset, 0, len(i.datasets))
	for _, ds := range i.datasets {
		out = append(out, ds)
	}
	i.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Stat describes path as a dataset if it is a regular CSV file.
func Stat(path string) (model.Dataset, bool) {
	return stat(path)
}

func stat(path string) (model.Dataset, bool) {
	if !isCSV(path) {
		return model.Dataset{}, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return model.Dataset{}, false
	}
	return model.Dataset{
		Name:       info.Name(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime().Unix(),
	}, true
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
