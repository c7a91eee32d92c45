package storage_document

import (
	"context"
	"encoding/json"
)

// Txn buffers writes and remembers the version of every document it read.
// It is only valid inside the RunTransaction callback that received it.
type Txn struct {
	ctx     context.Context
	backend Backend

	reads   map[Key]int64
	pending map[Key]*Write
	order   []Key
}

func newTxn(ctx context.Context, backend Backend) *Txn {
	return &Txn{
		ctx:     ctx,
		backend: backend,
		reads:   make(map[Key]int64),
		pending: make(map[Key]*Write),
	}
}

func (t *Txn) Get(collection, id string) (Doc, error) {
	key := Key{collection, id}
	if w, ok := t.pending[key]; ok {
		if w.Delete {
			return nil, ErrNotFound
		}
		return w.Doc, nil
	}

	doc, version, err := t.backend.Load(t.ctx, key)
	if err != nil {
		return nil, err
	}
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = version
	}
	if version == 0 {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (t *Txn) Set(collection, id string, doc Doc) {
	t.put(Write{Key: Key{collection, id}, Doc: doc})
}

func (t *Txn) Delete(collection, id string) {
	t.put(Write{Key: Key{collection, id}, Delete: true})
}

func (t *Txn) Update(collection, id string, fields Doc) error {
	current, err := t.Get(collection, id)
	if err != nil {
		return err
	}
	t.Set(collection, id, current.Merge(fields))
	return nil
}

func (t *Txn) ArrayUnion(collection, id, field string, values ...string) error {
	return t.rewriteStrings(collection, id, field, func(current []string) []string {
		return union(current, values)
	})
}

func (t *Txn) ArrayRemove(collection, id, field string, values ...string) error {
	return t.rewriteStrings(collection, id, field, func(current []string) []string {
		return remove(current, values)
	})
}

func (t *Txn) rewriteStrings(collection, id, field string, fn func([]string) []string) error {
	current, err := t.Get(collection, id)
	if err != nil {
		return err
	}
	values, err := current.Strings(field)
	if err != nil {
		return err
	}
	next := fn(values)
	if next == nil {
		next = []string{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	t.Set(collection, id, current.Merge(Doc{field: raw}))
	return nil
}

func (t *Txn) put(w Write) {
	if _, ok := t.pending[w.Key]; !ok {
		t.order = append(t.order, w.Key)
	}
	t.pending[w.Key] = &w
}

func (t *Txn) empty() bool {
	return len(t.order) == 0
}

func (t *Txn) writes() []Write {
	out := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, *t.pending[k])
	}
	return out
}
