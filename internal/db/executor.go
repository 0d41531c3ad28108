package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	apperrors "clinic/internal/errors"
)

// FetchMode selects what ExecuteQuery returns.
type FetchMode int

const (
	// FetchNone runs a write, commits it and reports rows affected.
	FetchNone FetchMode = iota
	// FetchOne returns at most one row without committing.
	FetchOne
	// FetchAll returns every row without committing.
	FetchAll
)

// Result is what ExecuteQuery produced.
type Result struct {
	Rows         []Record
	RowsAffected int64
	LastInsertID int64
}

// Record returns the first row, if any.
func (r *Result) Record() (Record, bool) {
	if r == nil || len(r.Rows) == 0 {
		return Record{}, false
	}
	return r.Rows[0], true
}

// ExecResult describes a completed write.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Querier is the statement surface shared by Executor and Tx, so repositories
// can run either standalone or inside a transaction.
type Querier interface {
	QueryOne(ctx context.Context, query string, args ...interface{}) (Record, bool, error)
	QueryAll(ctx context.Context, query string, args ...interface{}) ([]Record, error)
	Exec(ctx context.Context, query string, args ...interface{}) (ExecResult, error)
}

// Executor is the single point of contact with the database. Values are always
// bound as parameters, never formatted into SQL text.
type Executor struct {
	pool   *Pool
	logger zerolog.Logger
}

var (
	_ Querier = (*Executor)(nil)
	_ Querier = (*Tx)(nil)
)

// NewExecutor creates an executor on top of pool.
func NewExecutor(pool *Pool, logger zerolog.Logger) *Executor {
	return &Executor{pool: pool, logger: logger.With().Str("component", "db").Logger()}
}

// Pool returns the underlying pool.
func (e *Executor) Pool() *Pool {
	return e.pool
}

// ExecuteQuery runs query with bound args. FetchOne and FetchAll read without
// committing; FetchNone commits and fills RowsAffected.
func (e *Executor) ExecuteQuery(ctx context.Context, query string, mode FetchMode, args ...interface{}) (*Result, error) {
	switch mode {
	case FetchOne:
		rec, ok, err := e.QueryOne(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		res := &Result{}
		if ok {
			res.Rows = []Record{rec}
		}
		return res, nil
	case FetchAll:
		rows, err := e.QueryAll(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return &Result{Rows: rows}, nil
	case FetchNone:
		out, err := e.Exec(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return &Result{RowsAffected: out.RowsAffected, LastInsertID: out.LastInsertID}, nil
	default:
		return nil, apperrors.Validation("unknown fetch mode %d", mode)
	}
}

// QueryOne returns the first row of query.
func (e *Executor) QueryOne(ctx context.Context, query string, args ...interface{}) (rec Record, ok bool, err error) {
	err = e.pool.WithConnection(ctx, func(conn *Conn) error {
		rec, ok, err = queryOne(ctx, conn.conn, query, args)
		return err
	})
	return rec, ok, err
}

// QueryAll returns every row of query.
func (e *Executor) QueryAll(ctx context.Context, query string, args ...interface{}) (rows []Record, err error) {
	err = e.pool.WithConnection(ctx, func(conn *Conn) error {
		rows, err = queryAll(ctx, conn.conn, query, args)
		return err
	})
	return rows, err
}

// Exec runs a write in its own transaction and commits it.
func (e *Executor) Exec(ctx context.Context, query string, args ...interface{}) (out ExecResult, err error) {
	err = e.WithTx(ctx, func(tx *Tx) error {
		out, err = tx.Exec(ctx, query, args...)
		return err
	})
	return out, err
}

// WithTx runs fn inside one transaction on one pooled connection. It commits
// once if fn returns nil and rolls back once otherwise, including on panic.
func (e *Executor) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return e.pool.WithConnection(ctx, func(conn *Conn) error {
		sqlTx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		return e.runTx(sqlTx, func() error { return fn(&Tx{tx: sqlTx}) })
	})
}

func (e *Executor) runTx(sqlTx *sql.Tx, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			e.rollback(sqlTx)
			panic(p)
		}
	}()

	if err := fn(); err != nil {
		e.rollback(sqlTx)
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

func (e *Executor) rollback(sqlTx *sql.Tx) {
	if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		e.logger.Warn().Err(err).Msg("rollback failed")
	}
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func checkIdentifier(kind, name string) error {
	if !identifierRe.MatchString(name) {
		return apperrors.Validation("invalid %s name %q", kind, name)
	}
	return nil
}

// OutParam marks a stored procedure OUT argument.
type OutParam struct {
	Name string
}

// Out declares an OUT argument whose value is returned under name.
func Out(name string) OutParam {
	return OutParam{Name: name}
}

// ExecuteStoredProcedure calls the procedure, drains every result set into one
// ordered slice, reads OUT arguments and commits. On failure it rolls back.
func (e *Executor) ExecuteStoredProcedure(ctx context.Context, name string, args ...interface{}) ([]Record, map[string]interface{}, error) {
	if err := checkIdentifier("procedure", name); err != nil {
		return nil, nil, err
	}

	placeholders := make([]string, 0, len(args))
	bind := make([]interface{}, 0, len(args))
	var outVars, outNames []string
	for i, arg := range args {
		out, ok := arg.(OutParam)
		if !ok {
			placeholders = append(placeholders, "?")
			bind = append(bind, arg)
			continue
		}
		if err := checkIdentifier("out parameter", out.Name); err != nil {
			return nil, nil, err
		}
		v := fmt.Sprintf("@_%s_%d", strings.ReplaceAll(name, ".", "_"), i)
		placeholders = append(placeholders, v)
		outVars = append(outVars, v)
		outNames = append(outNames, out.Name)
	}
	call := fmt.Sprintf("CALL %s(%s)", name, strings.Join(placeholders, ", "))

	var rows []Record
	outputs := map[string]interface{}{}
	err := e.pool.WithConnection(ctx, func(conn *Conn) error {
		sqlTx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		return e.runTx(sqlTx, func() error {
			err := WithCursor(sqlTx, func(cur *Cursor) error {
				if err := cur.Execute(ctx, call, bind...); err != nil {
					return err
				}
				for {
					set, err := cur.FetchAll()
					if err != nil {
						return err
					}
					rows = append(rows, set...)
					more, err := cur.NextResultSet()
					if err != nil {
						return err
					}
					if !more {
						return nil
					}
				}
			})
			if err != nil || len(outVars) == 0 {
				return err
			}

			cols := make([]string, len(outVars))
			for i, v := range outVars {
				cols[i] = fmt.Sprintf("%s AS `%s`", v, outNames[i])
			}
			rec, ok, err := queryOne(ctx, sqlTx, "SELECT "+strings.Join(cols, ", "), nil)
			if err != nil {
				return err
			}
			for _, n := range outNames {
				if ok {
					outputs[n] = rec.Value(n)
				} else {
					outputs[n] = nil
				}
			}
			return nil
		})
	})
	if err != nil {
		e.logger.Error().Err(err).Str("procedure", name).Msg("stored procedure failed")
		return nil, nil, err
	}
	return rows, outputs, nil
}

// ExecuteFunction evaluates SELECT name(args...) and returns the scalar, or nil
// when the query produced no row.
func (e *Executor) ExecuteFunction(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	if err := checkIdentifier("function", name); err != nil {
		return nil, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := fmt.Sprintf("SELECT %s(%s) AS result", name, placeholders)

	rec, ok, err := e.QueryOne(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return rec.Value("result"), nil
}

// Tx is a transaction opened by Executor.WithTx. Its statements are committed
// or rolled back together when WithTx returns.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) QueryOne(ctx context.Context, query string, args ...interface{}) (Record, bool, error) {
	return queryOne(ctx, t.tx, query, args)
}

func (t *Tx) QueryAll(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	return queryAll(ctx, t.tx, query, args)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (ExecResult, error) {
	var out ExecResult
	err := WithCursor(t.tx, func(cur *Cursor) error {
		res, err := cur.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		out.RowsAffected, err = res.RowsAffected()
		if err != nil {
			return classify("rows affected", err)
		}
		// Drivers without insert ids report an error here; zero is fine.
		if id, err := res.LastInsertId(); err == nil {
			out.LastInsertID = id
		}
		return nil
	})
	return out, err
}

func queryOne(ctx context.Context, q queryer, query string, args []interface{}) (rec Record, ok bool, err error) {
	err = WithCursor(q, func(cur *Cursor) error {
		if err := cur.Execute(ctx, query, args...); err != nil {
			return err
		}
		rec, ok, err = cur.FetchOne()
		return err
	})
	return rec, ok, err
}

func queryAll(ctx context.Context, q queryer, query string, args []interface{}) (rows []Record, err error) {
	err = WithCursor(q, func(cur *Cursor) error {
		if err := cur.Execute(ctx, query, args...); err != nil {
			return err
		}
		rows, err = cur.FetchAll()
		return err
	})
	return rows, err
}
