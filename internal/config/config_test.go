package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"APP_ENV":              "dev",
		"APP_PORT":             "8080",
		"DB_USER":              "identity",
		"DB_HOST":              "localhost",
		"DB_PORT":              "3306",
		"DB_NAME":              "identity",
		"JWT_SECRET":           "access",
		"REFRESH_TOKEN_SECRET": "refresh",
	}
}

func with(overrides map[string]string) map[string]string {
	m := requiredEnv()
	for k, v := range overrides {
		m[k] = v
	}
	return m
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(requiredEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, "info", cfg.LogLevel)
	require.True(t, cfg.DBAutoMigrate)
	require.Equal(t, 30*time.Minute, cfg.AccessTTL())
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	require.Equal(t, 12, cfg.BcryptCost)
	require.Equal(t, 5, cfg.LoginMaxFailedAttempts)
	require.Equal(t, 15*time.Minute, cfg.LoginLockout)
	require.Equal(t, 500*time.Millisecond, cfg.RegisterFailureDelay)
	require.Equal(t, time.Hour, cfg.TokenCleanupInterval)
	require.False(t, cfg.AuthEventsEnabled)
	require.Equal(t, "logs", cfg.AuditLogDir)
	require.False(t, cfg.IsProduction())

	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, MethodSet{http.MethodGet: true}, cfg.Cache.Methods)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
	require.Equal(t, KeySubjectRouteQuery, cfg.Cache.KeyStrategy)
	require.Equal(t, "idcache", cfg.Cache.Prefix)
	require.Equal(t, 1<<20, cfg.Cache.MaxBodyBytes)
	require.Equal(t, "localhost:6379", cfg.Redis.Options().Addr)
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	for k, v := range requiredEnv() {
		t.Setenv(k, v)
	}
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	environ := with(map[string]string{
		"JWT_SECRET":    "",
		"BCRYPT_COST":   "high",
		"LOGIN_LOCKOUT": "soon",
	})
	delete(environ, "DB_HOST")

	_, err := load(environ)
	require.Error(t, err)
	for _, want := range []string{"JWT_SECRET", "DB_HOST", `"high"`, `"soon"`} {
		require.Contains(t, err.Error(), want)
	}
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	_, err := load(with(map[string]string{
		"BCRYPT_COST":          "40",
		"ACCESS_TOKEN_TTL_MIN": "0",
		"CACHE_KEY_STRATEGY":   "by_moon_phase",
		"CACHE_MAX_BODY_BYTES": "-1",
	}))
	require.Error(t, err)
	for _, want := range []string{"BCRYPT_COST", "ACCESS_TOKEN_TTL_MIN", "CACHE_KEY_STRATEGY", "CACHE_MAX_BODY_BYTES"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestLoadRejectsMalformedCacheValues(t *testing.T) {
	_, err := load(with(map[string]string{"CACHE_MAX_BODY_BYTES": "abc"}))
	require.ErrorContains(t, err, `"abc"`)

	_, err = load(with(map[string]string{"CACHE_TTL": "forever"}))
	require.ErrorContains(t, err, `"forever"`)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(with(map[string]string{
		"APP_ENV":                   "Production",
		"APP_HOST":                  "127.0.0.1",
		"LOGIN_MAX_FAILED_ATTEMPTS": "0",
		"DB_AUTO_MIGRATE":           "false",
		"AUTH_EVENTS_ENABLED":       "true",
		"CACHE_METHODS":             "get, head",
		"CACHE_ENABLED":             "false",
	}))
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "127.0.0.1:8080", cfg.Addr())
	require.Zero(t, cfg.LoginMaxFailedAttempts)
	require.False(t, cfg.DBAutoMigrate)
	require.True(t, cfg.AuthEventsEnabled)
	require.False(t, cfg.Cache.Enabled)
	require.Equal(t, MethodSet{http.MethodGet: true, http.MethodHead: true}, cfg.Cache.Methods)
}

func TestRedisOptions(t *testing.T) {
	cfg, err := load(with(map[string]string{
		"REDIS_HOST": "cache",
		"REDIS_PORT": "6380",
		"REDIS_DB":   "2",
		"REDIS_TLS":  "1",
	}))
	require.NoError(t, err)

	o := cfg.Redis.Options()
	require.Equal(t, "cache:6380", o.Addr)
	require.Equal(t, 2, o.DB)
	require.NotNil(t, o.TLSConfig)

	_, err = load(with(map[string]string{"REDIS_DB": "zero"}))
	require.ErrorContains(t, err, `"zero"`)
}
