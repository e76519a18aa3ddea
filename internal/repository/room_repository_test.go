package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-tools/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "capacity", "created_at", "updated_at"}).
		AddRow("room-1", 40, time.Now(), time.Now()).
		AddRow("room-2", 80, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, capacity, created_at, updated_at FROM rooms WHERE 1=1 AND capacity >= $1")).
		WithArgs(30).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rooms WHERE 1=1 AND capacity >= $1")).
		WithArgs(30).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rooms, total, err := repo.List(context.Background(), models.RoomFilter{MinCapacity: 30})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListAllOrdersByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "capacity", "created_at", "updated_at"}).
		AddRow("room-a", 25, time.Now(), time.Now()).
		AddRow("room-b", 60, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, capacity, created_at, updated_at FROM rooms ORDER BY id")).
		WillReturnRows(rows)

	rooms, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "room-a", rooms[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WithArgs(sqlmock.AnyArg(), 50, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Room{Capacity: 50}
	require.NoError(t, repo.Create(context.Background(), room))
	assert.NotEmpty(t, room.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
