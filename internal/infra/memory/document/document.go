package infra_memory_document

import (
	"context"
	"maps"
	"sync"

	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
)

type record struct {
	doc     storage_document.Doc
	version int64
}

type watcher struct {
	notify func()
}

// Driver keeps documents in process memory.
type Driver struct {
	mu       sync.RWMutex
	docs     map[storage_document.Key]record
	versions map[storage_document.Key]int64
	watchers map[storage_document.Key]map[*watcher]struct{}
}

var _ storage_document.Backend = (*Driver)(nil)

func New() *Driver {
	return &Driver{
		docs:     make(map[storage_document.Key]record),
		versions: make(map[storage_document.Key]int64),
		watchers: make(map[storage_document.Key]map[*watcher]struct{}),
	}
}

func (d *Driver) Load(ctx context.Context, key storage_document.Key) (storage_document.Doc, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.docs[key]
	if !ok {
		return nil, 0, nil
	}
	return maps.Clone(rec.doc), rec.version, nil
}

func (d *Driver) Commit(ctx context.Context, reads map[storage_document.Key]int64, writes []storage_document.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	for key, version := range reads {
		if d.docs[key].version != version {
			d.mu.Unlock()
			return storage_document.ErrConflict
		}
	}

	touched := make([]storage_document.Key, 0, len(writes))
	for _, w := range writes {
		// Versions keep counting across delete and re-create so a stale
		// read of a recreated document still conflicts.
		d.versions[w.Key]++
		if w.Delete {
			delete(d.docs, w.Key)
		} else {
			d.docs[w.Key] = record{doc: maps.Clone(w.Doc), version: d.versions[w.Key]}
		}
		touched = append(touched, w.Key)
	}

	var notify []func()
	for _, key := range touched {
		for w := range d.watchers[key] {
			notify = append(notify, w.notify)
		}
	}
	d.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return nil
}

func (d *Driver) Watch(key storage_document.Key, notify func()) (func(), error) {
	w := &watcher{notify: notify}

	d.mu.Lock()
	if d.watchers[key] == nil {
		d.watchers[key] = make(map[*watcher]struct{})
	}
	d.watchers[key][w] = struct{}{}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.watchers[key], w)
		if len(d.watchers[key]) == 0 {
			delete(d.watchers, key)
		}
	}, nil
}
