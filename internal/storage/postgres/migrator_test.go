package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func sqlFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadMigrationsFromFS_OrdersByVersion(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(fstest.MapFS{
		"sql/migrations/0010_totals.up.sql":     sqlFile("ALTER TABLE carts ADD COLUMN total NUMERIC;"),
		"sql/migrations/0010_totals.down.sql":   sqlFile("ALTER TABLE carts DROP COLUMN total;"),
		"sql/migrations/0002_carts.up.sql":      sqlFile("CREATE TABLE carts (id TEXT);"),
		"sql/migrations/0002_carts.down.sql":    sqlFile("DROP TABLE carts;"),
		"sql/migrations/README.txt":             sqlFile("ignored: not *.sql"),
		"sql/migrations/0003_index.up.sql":      sqlFile("  CREATE INDEX carts_id ON carts (id);\n"),
		"sql/migrations/0003_index.down.sql":    sqlFile("DROP INDEX carts_id;"),
		"sql/other/0001_unrelated.up.sql":       sqlFile("SELECT 1;"),
		"sql/other/0001_unrelated.down.sql":     sqlFile("SELECT 1;"),
		"sql/migrations/nested/0004_x.up.sql":   sqlFile("SELECT 1;"),
		"sql/migrations/nested/0004_x.down.sql": sqlFile("SELECT 1;"),
	})
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	require.Equal(t, []int64{2, 3, 10}, []int64{migrations[0].Version, migrations[1].Version, migrations[2].Version})
	require.Equal(t, "index", migrations[1].Name)
	require.Equal(t, "CREATE INDEX carts_id ON carts (id);", migrations[1].Up, "body is trimmed")
	require.Equal(t, "DROP TABLE carts;", migrations[0].Down)
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		fsys    fstest.MapFS
		wantErr string
	}{
		"no files": {
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
		"missing down": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_carts.up.sql": sqlFile("CREATE TABLE carts (id TEXT);"),
			},
			wantErr: "both up and down",
		},
		"bad name": {
			fsys: fstest.MapFS{
				"sql/migrations/carts.sql": sqlFile("SELECT 1;"),
			},
			wantErr: "invalid migration file name",
		},
		"blank body": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_carts.up.sql":   sqlFile(" \n\t"),
				"sql/migrations/0001_carts.down.sql": sqlFile("DROP TABLE carts;"),
			},
			wantErr: "migration file is empty",
		},
		"name mismatch": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_carts.up.sql":   sqlFile("CREATE TABLE carts (id TEXT);"),
				"sql/migrations/0001_carts.down.sql": sqlFile("DROP TABLE carts;"),
				"sql/migrations/0001_items.up.sql":   sqlFile("CREATE TABLE items (id TEXT);"),
			},
			wantErr: "name mismatch",
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := loadMigrationsFromFS(tc.fsys)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, "cart_snapshots", migrations[0].Name)
	require.Contains(t, migrations[0].Up, "cart_snapshots")
	require.Contains(t, migrations[0].Down, "DROP TABLE")
}
