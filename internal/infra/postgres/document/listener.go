package infra_postgres_document

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
)

// Listen subscribes to commit notifications from every instance sharing the
// database. Without it only commits made through this Driver are observed.
func (d *Driver) Listen(dsn string) (func() error, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			d.logger.Error("document listener event", slog.String("error", err.Error()))
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	d.mu.Lock()
	d.listening = true
	d.mu.Unlock()

	go func() {
		for n := range listener.Notify {
			// nil arrives after a reconnect; anything may have changed meanwhile.
			if n == nil {
				d.dispatchAll()
				continue
			}
			collection, id, ok := strings.Cut(n.Extra, "/")
			if !ok {
				continue
			}
			d.dispatch(storage_document.Key{Collection: collection, ID: id})
		}
	}()

	return func() error {
		d.mu.Lock()
		d.listening = false
		d.mu.Unlock()
		return listener.Close()
	}, nil
}

func (d *Driver) Watch(key storage_document.Key, notify func()) (func(), error) {
	fn := &notify

	d.mu.Lock()
	if d.watchers[key] == nil {
		d.watchers[key] = make(map[*func()]struct{})
	}
	d.watchers[key][fn] = struct{}{}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.watchers[key], fn)
		if len(d.watchers[key]) == 0 {
			delete(d.watchers, key)
		}
	}, nil
}

func (d *Driver) isListening() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listening
}

func (d *Driver) dispatch(key storage_document.Key) {
	d.mu.RLock()
	fns := make([]func(), 0, len(d.watchers[key]))
	for fn := range d.watchers[key] {
		fns = append(fns, *fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *Driver) dispatchAll() {
	d.mu.RLock()
	var fns []func()
	for _, set := range d.watchers {
		for fn := range set {
			fns = append(fns, *fn)
		}
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
