// Package config provides centralized configuration for a movieload run.
// Values are resolved once at startup from environment variables, with
// defaults for everything except the database connection string.
package config

import "time"

// Config holds all run configuration.
type Config struct {
	Input    InputConfig
	Quality  QualityConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Output   OutputConfig
	Logging  LoggingConfig
}

// InputConfig describes the source file.
type InputConfig struct {
	// Path is the delimited file to load
	Path string `env:"ETL_INPUT_PATH" default:"data/walt_disney_movies.csv"`

	// Encoding is a WHATWG encoding label, e.g. utf-8 or windows-1252 (default: utf-8)
	Encoding string `env:"ETL_INPUT_ENCODING" default:"utf-8"`

	// Delimiter is the single-character field separator (default: ,)
	Delimiter string `env:"ETL_INPUT_DELIMITER" default:","`

	// IndexColumn is the unnamed leading column renamed to IDColumn (default: "Unnamed: 0")
	IndexColumn string `env:"ETL_INDEX_COLUMN" default:"Unnamed: 0"`

	// IDColumn is the identifier column used as primary key (default: ID)
	IDColumn string `env:"ETL_ID_COLUMN" default:"ID"`
}

// QualityConfig holds data-quality and masking settings.
type QualityConfig struct {
	// UniqueColumn is counted for distinct values (default: title)
	UniqueColumn string `env:"ETL_UNIQUE_COLUMN" default:"title"`

	// MaskColumn is hashed before upload (default: Country)
	MaskColumn string `env:"ETL_MASK_COLUMN" default:"Country"`

	// SchemaFile overrides the embedded expected schema when set
	SchemaFile string `env:"ETL_SCHEMA_FILE"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the connection string (required).
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// Driver selects the SQL dialect: postgres or sqlite3 (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// MaxConns is the maximum number of pooled connections (default: 2)
	MaxConns int `env:"DB_MAX_CONNS" default:"2"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds settings for the backup-and-replace upload.
type UploadConfig struct {
	// Table is the target table name (default: disney_Movies)
	Table string `env:"UPLOAD_TABLE" default:"disney_Movies"`

	// BatchSize is the number of rows per multi-row INSERT (default: 20)
	BatchSize int `env:"UPLOAD_BATCH_SIZE" default:"20"`

	// RestoreOnFailure copies the backup back when a step after the replace fails (default: false)
	RestoreOnFailure bool `env:"UPLOAD_RESTORE_ON_FAILURE" default:"false"`
}

// OutputConfig holds the log export destination.
type OutputConfig struct {
	// LogPath is overwritten on every run (default: validation_log.csv)
	LogPath string `env:"ETL_LOG_PATH" default:"validation_log.csv"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// BackupTable returns the name the live table is copied to before replacement.
func (c *UploadConfig) BackupTable() string {
	return c.Table + "_backup"
}

// PrimaryKeyName returns the constraint name for the identifier column.
func (c *Config) PrimaryKeyName() string {
	return "pk_" + c.Upload.Table + "_" + c.Input.IDColumn
}

// Delim returns the configured delimiter as a rune.
func (c *InputConfig) Delim() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}
