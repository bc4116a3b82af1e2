// Package sqlxstore implements the remote store on a SQL database (PostgreSQL or SQLite)
// through sqlx. Tables are expected to exist, one per collection.
package sqlxstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/store"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type Store struct {
	db *sqlx.DB
}

var _ tablesync.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// both engines quote identifiers with double quotes
func quote(ident string) string {
	return strmangle.IdentQuote('"', '"', ident)
}

func (s *Store) Select(ctx context.Context, table string, ordering []core.DBOrdering) ([]core.Record, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(quote(table))
	if len(ordering) > 0 {
		parts := make([]string, len(ordering))
		for i, ord := range ordering {
			dir := "DESC"
			if ord.Ascending {
				dir = "ASC"
			}
			parts[i] = quote(ord.Field) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	rows, err := s.db.QueryxContext(ctx, b.String())
	if err != nil {
		return nil, classify(table, err)
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, classify(table, err)
	}
	dbTypes := make(map[string]string, len(colTypes))
	for _, ct := range colTypes {
		dbTypes[ct.Name()] = strings.ToUpper(ct.DatabaseTypeName())
	}

	recs := make([]core.Record, 0)
	for rows.Next() {
		row := make(map[string]interface{}, len(colTypes))
		if err := rows.MapScan(row); err != nil {
			return nil, classify(table, err)
		}
		rec := make(core.Record, len(row))
		for col, v := range row {
			rec[col] = normalize(v, dbTypes[col])
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(table, err)
	}
	return recs, nil
}

func (s *Store) Insert(ctx context.Context, table string, rec core.Record) error {
	cols, args, err := columnsAndArgs(rec)
	if err != nil {
		return err
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(table))
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(table), strings.Join(strmangle.IdentQuoteSlice('"', '"', cols), ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return classify(table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table, pkField string, pkValue interface{}, rec core.Record) error {
	cols, args, err := columnsAndArgs(rec)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return &store.QueryError{Table: table, Message: "no column to update"}
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quote(table), strings.Join(sets, ", "), quote(pkField))
	args = append(args, pkArg(pkValue))

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return classify(table, err)
	}
	return checkAffected(res, table, pkField, pkValue)
}

func (s *Store) Delete(ctx context.Context, table, pkField string, pkValue interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(table), quote(pkField))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), pkArg(pkValue))
	if err != nil {
		return classify(table, err)
	}
	return checkAffected(res, table, pkField, pkValue)
}

func checkAffected(res sql.Result, table, pkField string, pkValue interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(table, err)
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNoRows, "%s where %s = %v", table, pkField, pkValue)
	}
	return nil
}

// columnsAndArgs returns the sorted columns of rec with their bind values. Lists and
// objects are sent as JSON text.
func columnsAndArgs(rec core.Record) ([]string, []interface{}, error) {
	cols := make([]string, 0, len(rec))
	for c := range rec {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]interface{}, len(cols))
	for i, c := range cols {
		switch v := rec[c].(type) {
		case []interface{}, map[string]interface{}, []string:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "encoding column %s", c)
			}
			args[i] = string(raw)
		default:
			args[i] = v
		}
	}
	return cols, args, nil
}

// pkArg turns integral float keys (JSON numbers) back into integers.
func pkArg(v interface{}) interface{} {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

// normalize turns a scanned value into its JSON form, guided by the column's database type.
func normalize(v interface{}, dbType string) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeText(string(val), dbType)
	case string:
		return normalizeText(val, dbType)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case float32:
		return float64(val)
	case time.Time:
		if dbType == "DATE" {
			return val.UTC().Format(core.DateLayout)
		}
		return val.UTC().Format(time.RFC3339)
	}
	return v
}

func normalizeText(s, dbType string) interface{} {
	switch dbType {
	case "NUMERIC", "DECIMAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "JSON", "JSONB":
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decoded
		}
	case "_TEXT", "_VARCHAR":
		var arr pq.StringArray
		if err := arr.Scan([]byte(s)); err == nil {
			list := make([]interface{}, len(arr))
			for i, item := range arr {
				list[i] = item
			}
			return list
		}
	}
	return s
}

// classify sorts driver errors into transport failures and failures of the call itself.
func classify(table string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return store.NewConnectionError(err, table)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return store.NewConnectionError(err, table)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return store.NewConnectionError(err, table)
		}
		return &store.QueryError{Table: table, Code: string(pqErr.Code), Message: pqErr.Message}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code == sqlite3.ErrCantOpen || liteErr.Code == sqlite3.ErrNotADB {
			return store.NewConnectionError(err, table)
		}
		return &store.QueryError{Table: table, Code: strconv.Itoa(int(liteErr.ExtendedCode)), Message: liteErr.Error()}
	}
	return &store.QueryError{Table: table, Message: err.Error()}
}
