// Package config resolves host settings from SAMPLEPLUGIN_* environment
// variables. A .env file in the working directory is loaded first when present;
// variables already set in the process environment take precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"sampleplugin/internal/blob"
	"sampleplugin/internal/itemstore"
)

const prefix = "SAMPLEPLUGIN_"

// Environment variable names.
const (
	EnvStorageDriver  = prefix + "STORAGE_DRIVER"
	EnvSQLitePath     = prefix + "SQLITE_PATH"
	EnvPostgresDSN    = prefix + "POSTGRES_DSN"
	EnvPostgresDriver = prefix + "POSTGRES_SQL_DRIVER"
	EnvBlobDriver     = prefix + "BLOB_DRIVER"
	EnvBlobFSRoot     = prefix + "BLOB_FS_ROOT"
	EnvS3Bucket       = prefix + "BLOB_S3_BUCKET"
	EnvS3Region       = prefix + "BLOB_S3_REGION"
	EnvS3Endpoint     = prefix + "BLOB_S3_ENDPOINT"
	EnvS3PathStyle    = prefix + "BLOB_S3_PATH_STYLE"
	EnvLogLevel       = prefix + "LOG_LEVEL"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved host configuration.
type Config struct {
	Store    itemstore.Config
	Blob     blob.Config
	LogLevel slog.Level
}

// Load reads a .env file from the working directory when present and then
// resolves the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves configuration through lookup, which has the
// signature of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	var cfg Config

	switch d := itemstore.Driver(strings.ToLower(get(EnvStorageDriver))); d {
	case "", itemstore.DriverSQLite, itemstore.DriverPostgres, itemstore.DriverMemory:
		cfg.Store.Driver = d
	default:
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvStorageDriver, d)
	}
	cfg.Store.SQLitePath = get(EnvSQLitePath)
	cfg.Store.PostgresDSN = get(EnvPostgresDSN)
	switch d := get(EnvPostgresDriver); d {
	case "", "pgx", "postgres":
		cfg.Store.PostgresDriver = d
	default:
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvPostgresDriver, d)
	}

	switch d := blob.Driver(strings.ToLower(get(EnvBlobDriver))); d {
	case "", blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
		cfg.Blob.Driver = d
	default:
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvBlobDriver, d)
	}
	cfg.Blob.FSRoot = get(EnvBlobFSRoot)
	cfg.Blob.S3 = blob.S3Config{
		Bucket:   get(EnvS3Bucket),
		Region:   get(EnvS3Region),
		Endpoint: get(EnvS3Endpoint),
	}
	if raw := get(EnvS3PathStyle); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvS3PathStyle, raw)
		}
		cfg.Blob.S3.PathStyle = v
	}
	if cfg.Blob.Driver == blob.DriverS3 && cfg.Blob.S3.Bucket == "" {
		return Config{}, fmt.Errorf("%w: %s required for s3 blob driver", ErrInvalid, EnvS3Bucket)
	}

	level, err := ParseLevel(get(EnvLogLevel))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level
	return cfg, nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(raw string) (slog.Level, error) {
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, raw)
	}
	return level, nil
}
