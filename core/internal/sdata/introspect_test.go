package sdata_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE fact_sales (
		sale_id INTEGER PRIMARY KEY,
		customer_id INTEGER,
		order_date DATETIME,
		sales_amount DECIMAL(10,2),
		channel VARCHAR(20)
	)`)
	require.NoError(t, err)
	return db
}

func TestIntrospectSQLite(t *testing.T) {
	db := newSQLiteDB(t)
	p, err := dialect.New("sqlite")
	require.NoError(t, err)

	ctx := context.Background()

	schema, err := sdata.CurrentSchema(ctx, db, p)
	require.NoError(t, err)
	assert.Equal(t, "main", schema)

	tables, err := sdata.Tables(ctx, db, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"fact_sales"}, tables)

	cols, err := sdata.Introspect(ctx, db, p, "", "fact_sales")
	require.NoError(t, err)
	require.Len(t, cols, 5)

	assert.Equal(t, "sale_id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, "INTEGER", cols[0].Type)
	assert.False(t, cols[3].PrimaryKey)
	assert.Equal(t, "DECIMAL(10,2)", cols[3].Type)

	_, err = sdata.Introspect(ctx, db, p, "", "missing")
	assert.True(t, errors.Is(err, sdata.ErrNotFound))
}

func TestCatalogTableFromColumns(t *testing.T) {
	db := newSQLiteDB(t)
	p, err := dialect.New("sqlite3")
	require.NoError(t, err)

	cols, err := sdata.Introspect(context.Background(), db, p, "main", "fact_sales")
	require.NoError(t, err)

	td, defs := sdata.CatalogTableFromColumns("fact_sales", cols)
	assert.Equal(t, "sale_id", td.PrimaryKey)
	require.Len(t, defs, 5)

	byColumn := make(map[string]sdata.ColumnDef)
	for _, d := range defs {
		byColumn[d.Column] = d
	}

	assert.Equal(t, "PK", byColumn["sale_id"].Aggregation)
	assert.Equal(t, "orderDate", byColumn["order_date"].Name)
	assert.Equal(t, "DATETIME", byColumn["order_date"].Type)
	assert.Equal(t, "SUM", byColumn["sales_amount"].Aggregation)
	assert.Equal(t, "", byColumn["customer_id"].Aggregation)
	assert.Equal(t, "TEXT", byColumn["channel"].Type)

	m := &sdata.Model{
		Name:    "generated",
		From:    "fact_sales",
		Tables:  []sdata.TableDef{td},
		Columns: defs,
	}
	cat, err := sdata.NewModelCatalog(m, p)
	require.NoError(t, err)

	c, err := cat.FindColumnForSelect("salesAmount")
	require.NoError(t, err)
	assert.Equal(t, `fact_sales.sales_amount`, c.Declare(cat.AliasOf(c.QueryObject)))
}
