package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"m/001_create_sites.up.sql":    {Data: []byte("CREATE TABLE sites (id TEXT PRIMARY KEY)")},
	"m/001_create_sites.down.sql":  {Data: []byte("DROP TABLE sites")},
	"m/002_add_zone.up.sql":        {Data: []byte("ALTER TABLE sites ADD COLUMN time_zone TEXT")},
	"m/002_add_zone.down.sql":      {Data: []byte("ALTER TABLE sites DROP COLUMN time_zone")},
	"m/003_create_params.up.sql":   {Data: []byte("CREATE TABLE params (code TEXT)")},
	"m/003_create_params.down.sql": {Data: []byte("DROP TABLE params")},
	"m/README.md":                  {Data: []byte("not a migration")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n))
	return n == 1
}

func TestFSProviderGetMigrations(t *testing.T) {
	p := NewFSProvider(testMigrations, "m", "", SQLite)
	migrations, err := p.GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	byVersion := map[int]Migration{}
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	assert.Equal(t, "add zone", byVersion[2].Name)
	assert.Contains(t, byVersion[2].Up, "ADD COLUMN")
	assert.Contains(t, byVersion[2].Down, "DROP COLUMN")
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "m", "", SQLite))

	pending, err := m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	require.NoError(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.True(t, tableExists(t, db, "params"))

	// Running again is a no-op
	require.NoError(t, m.MigrateUp())

	require.NoError(t, m.MigrateTo(1))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.False(t, tableExists(t, db, "params"))
	assert.True(t, tableExists(t, db, "sites"))

	assert.Error(t, m.MigrateDown(1))

	require.NoError(t, m.MigrateDown(0))
	assert.False(t, tableExists(t, db, "sites"))
	version, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestMigrateFailureRollsBack(t *testing.T) {
	bad := fstest.MapFS{
		"m/001_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER)")},
		"m/002_broken.up.sql": {Data: []byte("CREATE TABLE")},
	}
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(bad, "m", "", SQLite))

	assert.Error(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
