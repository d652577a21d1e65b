package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "tier_prices",
		Columns:      []string{"id", "issue"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "tier_prices",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "tier_prices",
		Columns: []string{"id", "issue"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_tier_prices"}, []string{"provider_id", "issue", "basic"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "tier_prices"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "tier_prices",
		Columns:      []string{"provider_id", "issue", "basic"},
		ConflictKeys: []string{"provider_id", "issue"},
	}, [][]any{{"p1", "battery replacement", "800"}, {"p1", "screen replacement", "1500"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_tier_prices"}, []string{"provider_id"}).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "tier_prices",
		Columns:      []string{"provider_id"},
		ConflictKeys: []string{"provider_id"},
	}, [][]any{{"p1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into staging")
}

func TestUpsertSQL(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "catalog.tier_prices",
		Columns:      []string{"provider_id", "issue", "basic"},
		ConflictKeys: []string{"provider_id", "issue"},
	}
	got := upsertSQL(cfg, "_stage", nonConflictColumns(cfg.Columns, cfg.ConflictKeys))
	assert.Equal(t,
		`INSERT INTO "catalog"."tier_prices" ("provider_id", "issue", "basic") SELECT "provider_id", "issue", "basic" FROM "_stage" ON CONFLICT ("provider_id", "issue") DO UPDATE SET "basic" = EXCLUDED."basic"`,
		got)

	onlyKeys := upsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}}, "_s", nil)
	assert.Contains(t, onlyKeys, "DO NOTHING")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"catalog"."tier_prices"`, sanitizeTable("catalog.tier_prices"))
}
