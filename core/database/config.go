package database

// Config holds configuration for the database connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"5432"`
	// User is the database user.
	User string `mapstructure:"user" default:"geofuse"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name.
	Name string `mapstructure:"name" default:"geofuse"`
	// Driver is the database driver (postgres, mysql, sqlite).
	// Postgres is the primary target since the estimate store uses
	// PostGIS for its geometry column; sqlite is used in tests.
	Driver string `mapstructure:"driver" default:"postgres"`
	// SSLMode is the postgres sslmode parameter (disable, require, ...).
	SSLMode string `mapstructure:"ssl_mode" default:"disable"`
	// TimeoutSeconds is the connection/read/write timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
