package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careref/backend/internal/adapters/database"
	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/careref/backend/pkg/errors"
)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func TestSnapshotAdapter_Save(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSnapshotAdapter(client)

	mock.ExpectExec(`INSERT INTO "dataset_snapshots".*ON CONFLICT \(.?dataset_id.?\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Save(context.Background(), "drugs", []string{"Aspirin", "Metformin"}, entities.SnapshotSourceLive)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAdapter_Load(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSnapshotAdapter(client)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"dataset_id", "items", "source", "count", "created_at", "updated_at"}).
		AddRow("drugs", []byte(`{Aspirin,Metformin}`), "live", 2, now, now)

	mock.ExpectQuery(`SELECT .* FROM "dataset_snapshots" WHERE \("dataset_id" = `).
		WillReturnRows(rows)

	snapshot, err := adapter.Load(context.Background(), "drugs")
	require.NoError(t, err)
	assert.Equal(t, "drugs", snapshot.DatasetID)
	assert.Equal(t, []string{"Aspirin", "Metformin"}, snapshot.Items)
	assert.Equal(t, entities.SnapshotSourceLive, snapshot.Source)
	assert.Equal(t, 2, snapshot.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAdapter_LoadMissing(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewSnapshotAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "dataset_snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"dataset_id", "items", "source", "count", "created_at", "updated_at"}))

	_, err := adapter.Load(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
