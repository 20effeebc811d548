package db

import (
	"sync/atomic"

	"gorm.io/gorm"
)

// QueryCounter is a gorm plugin counting statements that reach the database.
// Reads issued through Find/First and through Raw(...).Scan are both counted.
type QueryCounter struct {
	reads  atomic.Int64
	writes atomic.Int64
}

const queryCounterName = "ecclesia:query_counter"

func NewQueryCounter() *QueryCounter {
	return &QueryCounter{}
}

func (c *QueryCounter) Name() string { return queryCounterName }

func (c *QueryCounter) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().After("gorm:query").Register(queryCounterName+":query", c.countRead); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register(queryCounterName+":row", c.countRead); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register(queryCounterName+":raw", c.countWrite); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register(queryCounterName+":create", c.countWrite); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register(queryCounterName+":update", c.countWrite); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register(queryCounterName+":delete", c.countWrite)
}

func (c *QueryCounter) countRead(tx *gorm.DB) {
	if tx.DryRun || tx.Statement.SQL.Len() == 0 {
		return
	}
	c.reads.Add(1)
}

func (c *QueryCounter) countWrite(tx *gorm.DB) {
	if tx.DryRun || tx.Statement.SQL.Len() == 0 {
		return
	}
	c.writes.Add(1)
}

func (c *QueryCounter) Reads() int64 { return c.reads.Load() }

func (c *QueryCounter) Writes() int64 { return c.writes.Load() }

func (c *QueryCounter) Reset() {
	c.reads.Store(0)
	c.writes.Store(0)
}

var _ gorm.Plugin = (*QueryCounter)(nil)
