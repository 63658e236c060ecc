package database

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workers/internal/common/config"
	"report-workers/internal/common/errors"
)

func TestPostgresClient_PingAndQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectQuery("SELECT training_type FROM training_metadata").
		WillReturnRows(sqlmock.NewRows([]string{"training_type"}).AddRow("granular_v2"))
	mock.ExpectClose()

	c := NewPostgresFromDB(db)
	require.NoError(t, c.Ping(context.Background()))

	var tt string
	require.NoError(t, c.QueryRow(context.Background(), "SELECT training_type FROM training_metadata").Scan(&tt))
	assert.Equal(t, "granular_v2", tt)

	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(stderrors.New("connection refused"))

	err = NewPostgresFromDB(db).Ping(context.Background())
	var std *errors.StandardError
	require.True(t, stderrors.As(err, &std))
	assert.Equal(t, errors.ErrCodeDatabaseConnectionFailed, std.Code)
	assert.True(t, std.Retryable)
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	c, err := NewRedis(config.RedisConfig{Address: "localhost:6379"})
	require.NoError(t, err)
	assert.NotNil(t, c.GetClient())
	assert.NoError(t, c.Close())
}
