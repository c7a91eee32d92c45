package infra_postgres_document

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type DocumentInfraUnitSuite struct {
	suite.Suite
}

type resources struct {
	mock   sqlmock.Sqlmock
	driver *Driver
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &resources{
		mock:   mock,
		driver: New(sqlx.NewDb(db, "sqlmock")),
		ctx:    context.Background(),
	}
}

func groupKey() storage_document.Key {
	return storage_document.Key{Collection: "Groups", ID: "g1"}
}

func nameDoc(name string) storage_document.Doc {
	raw, _ := json.Marshal(name)
	return storage_document.Doc{"name": raw}
}

const (
	loadQuery   = `SELECT body, version FROM documents WHERE collection = \$1 AND id = \$2`
	lockQuery   = `SELECT version FROM documents WHERE collection = \$1 AND id = \$2 FOR UPDATE`
	upsertQuery = `INSERT INTO documents .* DO UPDATE SET`
	createQuery = `INSERT INTO documents .* DO NOTHING`
	deleteQuery = `DELETE FROM documents WHERE collection = \$1 AND id = \$2`
	notifyQuery = `SELECT pg_notify\(\$1, \$2\)`
)

func (s *DocumentInfraUnitSuite) TestLoad(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		setupMocks      func(r *resources)
		expectedVersion int64
		expectedName    string
		expectError     bool
	}{
		{
			name: "Should load existing document",
			setupMocks: func(r *resources) {
				rows := sqlmock.NewRows([]string{"body", "version"}).
					AddRow([]byte(`{"name":"trip","members":["a"]}`), int64(7))
				r.mock.ExpectQuery(loadQuery).WithArgs("Groups", "g1").WillReturnRows(rows)
			},
			expectedVersion: 7,
			expectedName:    `"trip"`,
		},
		{
			name: "Should report version 0 when document is absent",
			setupMocks: func(r *resources) {
				r.mock.ExpectQuery(loadQuery).WithArgs("Groups", "g1").
					WillReturnRows(sqlmock.NewRows([]string{"body", "version"}))
			},
			expectedVersion: 0,
		},
		{
			name: "Should return error when database fails",
			setupMocks: func(r *resources) {
				r.mock.ExpectQuery(loadQuery).WithArgs("Groups", "g1").
					WillReturnError(errors.New("connection reset"))
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			doc, version, err := r.driver.Load(r.ctx, groupKey())

			if tc.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedVersion, version)
				if tc.expectedName != "" {
					assert.JSONEq(t, tc.expectedName, string(doc["name"]))
				}
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (s *DocumentInfraUnitSuite) TestCommit(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		reads         map[storage_document.Key]int64
		writes        []storage_document.Write
		setupMocks    func(r *resources)
		expectedError error
		expectError   bool
	}{
		{
			name:   "Should overwrite document read at matching version",
			reads:  map[storage_document.Key]int64{groupKey(): 3},
			writes: []storage_document.Write{{Key: groupKey(), Doc: nameDoc("new")}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectQuery(lockQuery).WithArgs("Groups", "g1").
					WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))
				r.mock.ExpectExec(upsertQuery).WithArgs("Groups", "g1", `{"name":"new"}`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec(notifyQuery).WithArgs("documents", "Groups/g1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectCommit()
			},
		},
		{
			name:   "Should conflict when version moved",
			reads:  map[storage_document.Key]int64{groupKey(): 3},
			writes: []storage_document.Write{{Key: groupKey(), Doc: nameDoc("new")}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectQuery(lockQuery).WithArgs("Groups", "g1").
					WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
				r.mock.ExpectRollback()
			},
			expectError:   true,
			expectedError: storage_document.ErrConflict,
		},
		{
			name:   "Should conflict when an absent document was created meanwhile",
			reads:  map[storage_document.Key]int64{groupKey(): 0},
			writes: []storage_document.Write{{Key: groupKey(), Doc: nameDoc("new")}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectQuery(lockQuery).WithArgs("Groups", "g1").
					WillReturnRows(sqlmock.NewRows([]string{"version"}))
				r.mock.ExpectExec(createQuery).WithArgs("Groups", "g1", `{"name":"new"}`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectRollback()
			},
			expectError:   true,
			expectedError: storage_document.ErrConflict,
		},
		{
			name:   "Should delete document",
			reads:  map[storage_document.Key]int64{groupKey(): 5},
			writes: []storage_document.Write{{Key: groupKey(), Delete: true}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectQuery(lockQuery).WithArgs("Groups", "g1").
					WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
				r.mock.ExpectExec(deleteQuery).WithArgs("Groups", "g1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				r.mock.ExpectExec(notifyQuery).WithArgs("documents", "Groups/g1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				r.mock.ExpectCommit()
			},
		},
		{
			name:   "Should map serialization failure to conflict",
			writes: []storage_document.Write{{Key: groupKey(), Doc: nameDoc("new")}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec(upsertQuery).WithArgs("Groups", "g1", `{"name":"new"}`).
					WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
				r.mock.ExpectRollback()
			},
			expectError:   true,
			expectedError: storage_document.ErrConflict,
		},
		{
			name:   "Should pass through other database errors",
			writes: []storage_document.Write{{Key: groupKey(), Doc: nameDoc("new")}},
			setupMocks: func(r *resources) {
				r.mock.ExpectBegin()
				r.mock.ExpectExec(upsertQuery).WithArgs("Groups", "g1", `{"name":"new"}`).
					WillReturnError(&pq.Error{Code: "23502", Message: "not null violation"})
				r.mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			reads := tc.reads
			if reads == nil {
				reads = map[storage_document.Key]int64{}
			}
			err := r.driver.Commit(r.ctx, reads, tc.writes)

			if tc.expectError {
				assert.Error(t, err)
				if tc.expectedError != nil {
					assert.ErrorIs(t, err, tc.expectedError)
				} else {
					assert.NotErrorIs(t, err, storage_document.ErrConflict)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, r.mock.ExpectationsWereMet())
		})
	}
}

func (s *DocumentInfraUnitSuite) TestCommitNotifiesLocalWatchers(t provider.T) {
	t.Parallel()
	r := initResources(t)

	calls := 0
	cancel, err := r.driver.Watch(groupKey(), func() { calls++ })
	require.NoError(t, err)

	r.mock.ExpectBegin()
	r.mock.ExpectExec(upsertQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	r.mock.ExpectExec(notifyQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	r.mock.ExpectCommit()

	require.NoError(t, r.driver.Commit(r.ctx, map[storage_document.Key]int64{}, []storage_document.Write{
		{Key: groupKey(), Doc: nameDoc("x")},
	}))
	assert.Equal(t, 1, calls)

	cancel()
	r.driver.dispatch(groupKey())
	assert.Equal(t, 1, calls)
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(DocumentInfraUnitSuite))
}
