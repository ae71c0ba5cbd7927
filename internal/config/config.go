// Package config provides configuration structures and loading for isaload.
package config

// Config represents the complete application configuration.
type Config struct {
	Sink    DatabaseConfig `yaml:"sink" mapstructure:"sink"`
	Data    DataConfig     `yaml:"data" mapstructure:"data"`
	Load    LoadConfig     `yaml:"load" mapstructure:"load"`
	Journal JournalConfig  `yaml:"journal" mapstructure:"journal"`
	Logging LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// DataConfig locates the CSV artifacts on disk.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LoadConfig represents load session settings.
type LoadConfig struct {
	Truncate bool `yaml:"truncate" mapstructure:"truncate"`
	// Self-referencing units carry forward references within a single
	// file, so foreign key checks stay off during the bulk pass.
	DisableForeignKeyChecks bool `yaml:"disable_foreign_key_checks" mapstructure:"disable_foreign_key_checks"`
	ProgressInterval        int  `yaml:"progress_interval" mapstructure:"progress_interval"` // seconds between progress log lines
	LockTimeout             int  `yaml:"lock_timeout" mapstructure:"lock_timeout"`           // seconds to wait for the session lock
}

// JournalConfig controls run journal recording in the sink database.
type JournalConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Sink: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Load: LoadConfig{
			Truncate:                false,
			DisableForeignKeyChecks: true,
			ProgressInterval:        5,
			LockTimeout:             30,
		},
		Journal: JournalConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
