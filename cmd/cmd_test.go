package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv"
)

const ordersModel = `
name: orders
from: orders
tables:
  - name: orders
    alias: o
columns:
  - name: status
    type: text
  - name: amount
    type: money
    aggregation: sum
`

func TestMain(m *testing.M) {
	log = zap.NewNop().Sugar()
	os.Exit(m.Run())
}

func newEngine(t *testing.T, fs afero.Fs) *core.Engine {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/conf/orders.yml", []byte(ordersModel), 0o644))

	c := &serv.Config{Serv: serv.Serv{ConfigPath: "/conf", CatalogPath: "orders.yml"}}
	e, err := serv.NewEngine(c, fs, zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

func TestCompileFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := newEngine(t, fs)

	require.NoError(t, afero.WriteFile(fs, "/req/a.yml", []byte(`columns: [status]`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/req/b.json", []byte(`{
		"columns": ["status", "amount"],
		"group_by": [{"field": "status"}]
	}`), 0o644))

	res, err := compileFiles(context.Background(), e, fs, []string{"/req/a.yml", "/req/b.json"}, 1)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "/req/a.yml", res[0].File)
	assert.Equal(t, `SELECT o.status status FROM orders o`, res[0].Result.SQL)
	assert.Equal(t, "/req/b.json", res[1].File)
	assert.Equal(t,
		`SELECT o.status status, SUM(o.amount) amount FROM orders o GROUP BY o.status`,
		res[1].Result.SQL)

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, res, "yaml"))

	var out []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "/req/a.yml", out[0]["file"])
	assert.Equal(t, `SELECT o.status status FROM orders o`,
		out[0]["result"].(map[string]interface{})["sql"])

	buf.Reset()
	require.NoError(t, writeResults(&buf, res, "json"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "/req/b.json", out[1]["file"])

	assert.Error(t, writeResults(&buf, res, "xml"))
}

func TestCompileFilesErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := newEngine(t, fs)

	require.NoError(t, afero.WriteFile(fs, "/req/ok.yml", []byte(`columns: [status]`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/req/bad.yml", []byte(`columns: [missing]`), 0o644))

	_, err := compileFiles(context.Background(), e, fs, []string{"/req/ok.yml", "/req/bad.yml"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/req/bad.yml")

	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = compileFiles(context.Background(), e, fs, []string{"/req/none.yml"}, 0)
	assert.Error(t, err)
}

func TestDialectsCmd(t *testing.T) {
	var buf bytes.Buffer
	c := dialectsCmd()
	c.SetOut(&buf)
	c.SetArgs([]string{})
	require.NoError(t, c.Execute())

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "dialects", buf.Bytes())
}

func TestWriteSchema(t *testing.T) {
	tests := []struct {
		kind string
		keys []string
	}{
		{"request", []string{"columns", "slice", "group_by", "return_total"}},
		{"config", []string{"dialect", "enable_cache", "log_level", "catalog"}},
		{"model", []string{"name", "from", "tables", "columns"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeSchema(&buf, tt.kind))

			var s struct {
				Properties map[string]interface{} `json:"properties"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
			for _, k := range tt.keys {
				assert.Contains(t, s.Properties, k)
			}
		})
	}

	assert.Error(t, writeSchema(&bytes.Buffer{}, "catalog"))
}

func TestIntrospectTable(t *testing.T) {
	c := &serv.Config{Serv: serv.Serv{DB: serv.Database{
		Type:           "sqlite",
		ConnString:     ":memory:",
		PoolSize:       1,
		MaxConnections: 1,
	}}}

	ctx := context.Background()
	sdb, err := serv.NewDB(ctx, c, true, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer sdb.Close() //nolint:errcheck

	_, err = sdb.Exec(`CREATE TABLE orders (
		order_id INTEGER PRIMARY KEY,
		status VARCHAR(20),
		amount DECIMAL(10,2)
	)`)
	require.NoError(t, err)

	d, err := c.DatabaseDialect()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listTables(ctx, &buf, sdb, d))
	assert.Equal(t, "orders\n", buf.String())

	buf.Reset()
	require.NoError(t, introspectTable(ctx, &buf, sdb, d, "", "orders"))

	var m core.Model
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "orders", m.Name)
	assert.Equal(t, "orders", m.From)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, "order_id", m.Tables[0].PrimaryKey)
	require.Len(t, m.Columns, 3)

	// the generated model compiles
	d2, err := core.NewDialect("sqlite")
	require.NoError(t, err)
	cat, err := core.ParseCatalog(buf.Bytes(), d2)
	require.NoError(t, err)
	_, err = cat.FindColumnForSelect("status")
	assert.NoError(t, err)
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	c := versionCmd()
	c.SetOut(&buf)
	c.SetArgs([]string{})
	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "foggy")
}
