package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// rows is the cursor surface shared by pgx.Rows and *sql.Rows.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type querier interface {
	query(ctx context.Context, sql string, args ...any) (rows, error)
}

// dialect captures the SQL differences between Postgres and SQLite.
type dialect struct {
	name      string
	numbered  bool                    // $1 placeholders instead of ?
	arrayArgs bool                    // expr = ANY($n) instead of IN (...)
	money     func(col string) string // NUMERIC -> text
	jsonText  func(col string) string // JSON column -> text
	location  string                  // EWKB of providers.location
}

var postgresDialect = dialect{
	name:      "postgres",
	numbered:  true,
	arrayArgs: true,
	money:     func(col string) string { return col + "::text" },
	jsonText:  func(col string) string { return col + "::text" },
	location:  "ST_AsEWKB(location::geometry)",
}

var sqliteDialect = dialect{
	name:     "sqlite",
	money:    func(col string) string { return "CAST(" + col + " AS TEXT)" },
	jsonText: func(col string) string { return col },
	location: "location",
}

// where accumulates AND-ed conditions. Conditions are written with ?
// placeholders and rewritten for the dialect as they are added.
type where struct {
	d     dialect
	conds []string
	args  []any
}

func newWhere(d dialect) *where {
	return &where{d: d}
}

func (w *where) add(cond string, args ...any) *where {
	var b strings.Builder
	i := 0
	for _, r := range cond {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		if i >= len(args) {
			panic(fmt.Sprintf("catalog: placeholder without argument in %q", cond))
		}
		w.args = append(w.args, args[i])
		i++
		if w.d.numbered {
			fmt.Fprintf(&b, "$%d", len(w.args))
		} else {
			b.WriteByte('?')
		}
	}
	w.conds = append(w.conds, b.String())
	return w
}

// in matches expr against a list. An empty list matches nothing.
func (w *where) in(expr string, vals []string) *where {
	if len(vals) == 0 {
		w.conds = append(w.conds, "1 = 0")
		return w
	}
	if w.d.arrayArgs {
		return w.add(expr+" = ANY(?)", vals)
	}
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return w.add(expr+" IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")+")", args...)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

type sqlQuerier struct {
	db *sql.DB
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}
