package database

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "id", Pass: "p@ss", Host: "db", Port: "3306", Name: "identity"}.DSN()
	require.Contains(t, dsn, "charset=utf8mb4")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "id", cfg.User)
	require.Equal(t, "p@ss", cfg.Passwd)
	require.Equal(t, "db:3306", cfg.Addr)
	require.Equal(t, "identity", cfg.DBName)
	require.True(t, cfg.ParseTime)
	require.Equal(t, time.UTC, cfg.Loc)
}

func TestSplitStatements(t *testing.T) {
	script := `
-- users
CREATE TABLE a (id INT);

-- nothing here;
INSERT INTO a VALUES (1);
;
`
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "INSERT INTO a VALUES (1)"}, SplitStatements(script))
	require.Empty(t, SplitStatements("-- only a comment\n"))
}

func TestMigrateRunsEveryStatementInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var stmts []string
	for _, name := range []string{"001_schema.sql", "002_default_roles.sql"} {
		b, err := migrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		stmts = append(stmts, SplitStatements(string(b))...)
	}
	require.NotEmpty(t, stmts)
	for _, s := range stmts {
		mock.ExpectExec(regexp.QuoteMeta(s)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())

	var tables int
	for _, s := range stmts {
		if strings.HasPrefix(s, "CREATE TABLE") {
			tables++
		}
	}
	require.Equal(t, 7, tables)
}

func TestProfilesSchemaAllowsOneActiveProfilePerUser(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	schema := string(b)
	require.Contains(t, schema, "active_user_id    CHAR(36)     AS (IF(is_active = 1, user_id, NULL)) STORED")
	require.Contains(t, schema, "UNIQUE KEY uq_profiles_active_user (active_user_id)")
}
