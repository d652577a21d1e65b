package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere_Postgres(t *testing.T) {
	w := newWhere(postgresDialect).
		add("device_type = ?", "phone").
		in("provider_id", []string{"p1", "p2"}).
		add("(a = ? OR b = ?)", 1, 2)

	assert.Equal(t, " WHERE device_type = $1 AND provider_id = ANY($2) AND (a = $3 OR b = $4)", w.sql())
	assert.Equal(t, []any{"phone", []string{"p1", "p2"}, 1, 2}, w.args)
}

func TestWhere_SQLite(t *testing.T) {
	w := newWhere(sqliteDialect).
		add("device_type = ?", "phone").
		in("provider_id", []string{"p1", "p2"})

	assert.Equal(t, " WHERE device_type = ? AND provider_id IN (?, ?)", w.sql())
	assert.Equal(t, []any{"phone", "p1", "p2"}, w.args)
}

func TestWhere_EmptyInMatchesNothing(t *testing.T) {
	w := newWhere(sqliteDialect).in("issue", nil)
	assert.Equal(t, " WHERE 1 = 0", w.sql())
	assert.Empty(t, w.args)
}

func TestWhere_NoConditions(t *testing.T) {
	assert.Equal(t, "", newWhere(postgresDialect).sql())
}

func TestWhere_MissingArgumentPanics(t *testing.T) {
	assert.Panics(t, func() {
		newWhere(sqliteDialect).add("a = ? AND b = ?", 1)
	})
}
