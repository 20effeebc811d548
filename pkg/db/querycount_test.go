package db

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countedRow struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestQueryCounterCountsFindAndRawScan(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&countedRow{}))

	counter := NewQueryCounter()
	require.NoError(t, conn.Use(counter))

	require.NoError(t, conn.Create(&countedRow{ID: "a", Name: "first"}).Error)
	assert.Equal(t, int64(1), counter.Writes())
	assert.Equal(t, int64(0), counter.Reads())

	var rows []countedRow
	require.NoError(t, conn.Find(&rows).Error)
	assert.Len(t, rows, 1)

	var names []string
	require.NoError(t, conn.Raw("SELECT name FROM counted_rows").Scan(&names).Error)
	assert.Equal(t, []string{"first"}, names)

	assert.Equal(t, int64(2), counter.Reads())

	counter.Reset()
	assert.Equal(t, int64(0), counter.Reads())
	assert.Equal(t, int64(0), counter.Writes())
}

func TestIsDuplicateKeyErr(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&countedRow{}))

	require.NoError(t, conn.Create(&countedRow{ID: "a"}).Error)
	dupErr := conn.Create(&countedRow{ID: "a"}).Error
	require.Error(t, dupErr)
	assert.True(t, IsDuplicateKeyErr(dupErr))
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsRetryableTxErr(dupErr))
}

func TestIsRetryableTxErr(t *testing.T) {
	assert.True(t, IsRetryableTxErr(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, IsRetryableTxErr(fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgDeadlockDetected})))
	assert.False(t, IsRetryableTxErr(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.False(t, IsRetryableTxErr(nil))
}
