package db

import (
	"context"
	"database/sql"
)

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Cursor executes statements on a connection or transaction and yields rows as
// Records. Close releases any open result set.
type Cursor struct {
	q       queryer
	rows    *sql.Rows
	columns []string
}

func newCursor(q queryer) *Cursor {
	return &Cursor{q: q}
}

// WithCursor runs fn with a cursor over q and closes it on every exit path.
func WithCursor(q queryer, fn func(cur *Cursor) error) error {
	cur := newCursor(q)
	defer cur.Close()
	return fn(cur)
}

// Execute runs a row-returning statement. Any previous result set is closed.
func (c *Cursor) Execute(ctx context.Context, query string, args ...interface{}) error {
	c.closeRows()
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return classify("query", err)
	}
	c.rows = rows
	return c.loadColumns()
}

// Exec runs a statement that returns no rows.
func (c *Cursor) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	c.closeRows()
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify("exec", err)
	}
	return res, nil
}

func (c *Cursor) loadColumns() error {
	cols, err := c.rows.Columns()
	if err != nil {
		return classify("read columns", err)
	}
	c.columns = cols
	return nil
}

// FetchOne returns the next row of the current result set; ok is false when it
// is exhausted.
func (c *Cursor) FetchOne() (rec Record, ok bool, err error) {
	if c.rows == nil {
		return Record{}, false, nil
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return Record{}, false, classify("fetch", err)
		}
		return Record{}, false, nil
	}
	rec, err = c.scan()
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// FetchAll returns the remaining rows of the current result set.
func (c *Cursor) FetchAll() ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

// NextResultSet advances to the next result set of a multi-result statement.
func (c *Cursor) NextResultSet() (bool, error) {
	if c.rows == nil || !c.rows.NextResultSet() {
		if c.rows != nil {
			if err := c.rows.Err(); err != nil {
				return false, classify("next result set", err)
			}
		}
		return false, nil
	}
	return true, c.loadColumns()
}

func (c *Cursor) scan() (Record, error) {
	values := make([]interface{}, len(c.columns))
	ptrs := make([]interface{}, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return Record{}, classify("scan", err)
	}
	cols := make([]string, len(c.columns))
	copy(cols, c.columns)
	return NewRecord(cols, values), nil
}

func (c *Cursor) closeRows() {
	if c.rows != nil {
		_ = c.rows.Close()
		c.rows = nil
		c.columns = nil
	}
}

// Close releases the current result set.
func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	c.columns = nil
	return err
}
