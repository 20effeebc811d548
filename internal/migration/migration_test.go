package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	require.Equal(t, ups, downs)
}

func TestSchemaCarriesUniqueConstraints(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_cemetery.up.sql")
	require.NoError(t, err)
	sql := string(body)
	require.Contains(t, sql, "ux_graves_cemetery_code ON graves (cemetery_id, code)")
	require.Contains(t, sql, "ux_concessions_contract ON concessions (parish_id, contract_number)")
}

func TestExpirySweepFunctionRunsAsOwner(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000003_expiry_sweep.up.sql")
	require.NoError(t, err)
	sql := string(body)
	require.Contains(t, sql, "FUNCTION expiring_concession_parishes(before_day DATE)")
	require.Contains(t, sql, "SECURITY DEFINER")
	require.Contains(t, sql, "SET search_path = public")
}

func TestApplyAutoMigratesOutsidePostgres(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Apply(conn, zap.NewNop()))
	for _, table := range []string{"graves", "concessions", "burials", "concession_payments", "ledger_entries", "audit_logs", "parish_members"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestRunMigrationsRequiresDatabase(t *testing.T) {
	_, err := RunMigrations(nil)
	require.ErrorIs(t, err, ErrNoDatabase)
}
