// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tablestore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes table source files and marks the matching store entries
// dirty when they change on disk. It never applies images itself; the swap
// still goes through the documented Manage path.
type Watcher struct {
	store   *FileStore
	watcher *fsnotify.Watcher
	doneCh  chan struct{}
}

// NewWatcher creates a watcher over the given source files.
func NewWatcher(store *FileStore, sources ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tablestore: creating fsnotify watcher: %w", err)
	}

	// Watch parent directories; editors and atomic writers replace the
	// file rather than writing it in place.
	dirs := make(map[string]bool)
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("tablestore: resolving %q: %w", src, err)
		}
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("tablestore: watching %q: %w", dir, err)
		}
	}

	return &Watcher{
		store:   store,
		watcher: fsw,
		doneCh:  make(chan struct{}),
	}, nil
}

// Start runs the event loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
}

// Stop closes the underlying fsnotify watcher and waits for the event loop
// to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.doneCh
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				w.store.markDirty(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("table source watcher error", "error", err)
		}
	}
}
