package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func sqlOf(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLoggerTraceLevels(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())
	ctx := context.Background()
	now := time.Now()

	l.Trace(ctx, now, sqlOf(`SELECT * FROM "graves" WHERE id = $1`), gorm.ErrRecordNotFound)
	require.Equal(t, 0, logs.Len())

	l.Trace(ctx, now, sqlOf(`INSERT INTO "concessions" (id) VALUES ($1)`), gorm.ErrDuplicatedKey)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "concessions", logs.All()[0].ContextMap()["table"])

	l.Trace(ctx, now, sqlOf(`DELETE FROM burials WHERE id = $1`), errors.New("connection reset"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)

	// fast successful statements stay quiet at warn level
	l.Trace(ctx, now, sqlOf(`SELECT 1`), nil)
	assert.Equal(t, 2, logs.Len())
}

func TestGormLoggerFlagsRowLocksOnSlowQueries(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})

	l.Trace(context.Background(), time.Now().Add(-time.Second),
		sqlOf(`SELECT * FROM "graves" WHERE id = $1 FOR UPDATE`), nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, true, fields["row_lock"])
	assert.Equal(t, "SELECT", fields["operation"])
	assert.Equal(t, "graves", fields["table"])
}

func TestGormLoggerSilentAndParams(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig()).LogMode(gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), sqlOf(`UPDATE graves SET status = 'free'`), errors.New("boom"))
	assert.Equal(t, 0, logs.Len())

	sql, params := NewGormLogger(DefaultGormLoggerConfig()).ParamsFilter(context.Background(), "SELECT ?", "Kowalski")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}
