package storage_document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("transaction conflict")
)

const DefaultMaxAttempts = 5

type Key struct {
	Collection string
	ID         string
}

func (k Key) String() string {
	return k.Collection + "/" + k.ID
}

// Write replaces the document body or, when Delete is set, removes it.
type Write struct {
	Key    Key
	Doc    Doc
	Delete bool
}

type Snapshot struct {
	Key    Key
	Exists bool
	Doc    Doc
}

// Backend is the storage primitive a Store runs on. Load reports version 0
// for absent documents. Commit must fail with ErrConflict when any read
// version no longer matches.
type Backend interface {
	Load(ctx context.Context, key Key) (Doc, int64, error)
	Commit(ctx context.Context, reads map[Key]int64, writes []Write) error
	Watch(key Key, notify func()) (cancel func(), err error)
}

type Store struct {
	backend     Backend
	maxAttempts int
	logger      *slog.Logger
}

func New(backend Backend, maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		backend:     backend,
		maxAttempts: maxAttempts,
		logger:      slog.Default(),
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (Doc, error) {
	doc, version, err := s.backend.Load(ctx, Key{collection, id})
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Set writes doc as a whole, or overlays its top-level fields when merge is set.
func (s *Store) Set(ctx context.Context, collection, id string, doc Doc, merge bool) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		if !merge {
			tx.Set(collection, id, doc)
			return nil
		}
		current, err := tx.Get(collection, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		tx.Set(collection, id, current.Merge(doc))
		return nil
	})
}

func (s *Store) Update(ctx context.Context, collection, id string, fields Doc) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		return tx.Update(collection, id, fields)
	})
}

func (s *Store) Add(ctx context.Context, collection string, doc Doc) (string, error) {
	id := uuid.NewString()
	err := s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		if _, err := tx.Get(collection, id); !errors.Is(err, ErrNotFound) {
			if err == nil {
				return fmt.Errorf("%w: %s/%s exists", ErrConflict, collection, id)
			}
			return err
		}
		tx.Set(collection, id, doc)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		tx.Delete(collection, id)
		return nil
	})
}

func (s *Store) ArrayUnion(ctx context.Context, collection, id, field string, values ...string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		return tx.ArrayUnion(collection, id, field, values...)
	})
}

func (s *Store) ArrayRemove(ctx context.Context, collection, id, field string, values ...string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx *Txn) error {
		return tx.ArrayRemove(collection, id, field, values...)
	})
}

// RunTransaction re-runs fn from scratch whenever the commit loses a race,
// up to the configured number of attempts.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *Txn) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := newTxn(ctx, s.backend)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if tx.empty() {
			return nil
		}

		err := s.backend.Commit(ctx, tx.reads, tx.writes())
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", slog.Int("attempt", attempt))
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrConflict, s.maxAttempts)
}

// Subscribe delivers the current snapshot and then one per observed change.
// Bursts of changes may be coalesced into a single delivery.
func (s *Store) Subscribe(ctx context.Context, collection, id string, fn func(Snapshot)) (func(), error) {
	key := Key{collection, id}
	ctx, cancelCtx := context.WithCancel(ctx)

	pending := make(chan struct{}, 1)
	poke := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	cancelWatch, err := s.backend.Watch(key, poke)
	if err != nil {
		cancelCtx()
		return nil, err
	}
	poke()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
			}
			doc, version, err := s.backend.Load(ctx, key)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("subscription load failed",
						slog.String("key", key.String()),
						slog.String("error", err.Error()))
				}
				continue
			}
			fn(Snapshot{Key: key, Exists: version != 0, Doc: doc})
		}
	}()

	return func() {
		cancelWatch()
		cancelCtx()
	}, nil
}
