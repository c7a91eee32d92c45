package infra_postgres_document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
)

const notifyChannel = "documents"

type Driver struct {
	db     *sqlx.DB
	logger *slog.Logger

	mu        sync.RWMutex
	watchers  map[storage_document.Key]map[*func()]struct{}
	listening bool
}

var _ storage_document.Backend = (*Driver)(nil)

func New(db *sqlx.DB) *Driver {
	return &Driver{
		db:       db,
		logger:   slog.Default(),
		watchers: make(map[storage_document.Key]map[*func()]struct{}),
	}
}

type documentDTO struct {
	Body    []byte `db:"body"`
	Version int64  `db:"version"`
}

func (d *Driver) Load(ctx context.Context, key storage_document.Key) (storage_document.Doc, int64, error) {
	var dto documentDTO

	query := `SELECT body, version FROM documents WHERE collection = $1 AND id = $2`

	err := d.db.GetContext(ctx, &dto, query, key.Collection, key.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to load %s: %w", key, err)
	}

	var doc storage_document.Doc
	if err := json.Unmarshal(dto.Body, &doc); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return doc, dto.Version, nil
}

func (d *Driver) Commit(ctx context.Context, reads map[storage_document.Key]int64, writes []storage_document.Write) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock rows in a stable order so concurrent commits cannot deadlock.
	keys := make([]storage_document.Key, 0, len(reads))
	for k := range reads {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b storage_document.Key) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, key := range keys {
		if err := d.checkVersion(ctx, tx, key, reads[key]); err != nil {
			return err
		}
	}

	for _, w := range writes {
		version, read := reads[w.Key]
		if err := d.apply(ctx, tx, w, read && version == 0); err != nil {
			return conflictOr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return conflictOr(err)
	}

	if !d.isListening() {
		for _, w := range writes {
			d.dispatch(w.Key)
		}
	}
	return nil
}

func (d *Driver) checkVersion(ctx context.Context, tx *sqlx.Tx, key storage_document.Key, expected int64) error {
	var current int64

	query := `SELECT version FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`

	err := tx.GetContext(ctx, &current, query, key.Collection, key.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return conflictOr(err)
	}
	if current != expected {
		return storage_document.ErrConflict
	}
	return nil
}

// apply writes one document. mustCreate is set when the transaction saw the
// document as absent; an insert racing with another creator then conflicts.
func (d *Driver) apply(ctx context.Context, tx *sqlx.Tx, w storage_document.Write, mustCreate bool) error {
	if w.Delete {
		query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
		if _, err := tx.ExecContext(ctx, query, w.Key.Collection, w.Key.ID); err != nil {
			return err
		}
		return d.notify(ctx, tx, w.Key)
	}

	body, err := json.Marshal(w.Doc)
	if err != nil {
		return err
	}

	if mustCreate {
		query := `
			INSERT INTO documents (collection, id, body, version, updated_at)
			VALUES ($1, $2, $3, nextval('document_version_seq'), now())
			ON CONFLICT (collection, id) DO NOTHING
		`
		res, err := tx.ExecContext(ctx, query, w.Key.Collection, w.Key.ID, string(body))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return storage_document.ErrConflict
		}
		return d.notify(ctx, tx, w.Key)
	}

	query := `
		INSERT INTO documents (collection, id, body, version, updated_at)
		VALUES ($1, $2, $3, nextval('document_version_seq'), now())
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, w.Key.Collection, w.Key.ID, string(body)); err != nil {
		return err
	}
	return d.notify(ctx, tx, w.Key)
}

func (d *Driver) notify(ctx context.Context, tx *sqlx.Tx, key storage_document.Key) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key.String())
	return err
}

// conflictOr maps postgres serialization and deadlock failures to ErrConflict.
func conflictOr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", storage_document.ErrConflict, pqErr.Message)
		}
	}
	return err
}
