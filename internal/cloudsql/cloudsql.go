package cloudsql

import (
	"fmt"
	"net/url"

	"github.com/STRATINT/stockcast/internal/config"
)

// BuildDatabaseURL constructs a PostgreSQL connection string for either a
// direct DATABASE_URL or a Cloud SQL instance mounted as a Unix socket at
// /cloudsql/<INSTANCE_CONNECTION_NAME>.
func BuildDatabaseURL(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}

	if cfg.InstanceConnectionName == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socketPath := socketPath(cfg.InstanceConnectionName)

	if cfg.Password != "" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, cfg.User, cfg.Password, cfg.Name), nil
	}

	// IAM authentication
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		socketPath, cfg.User, cfg.Name), nil
}

// ConnectionConfig returns connection details safe for logging.
func ConnectionConfig(cfg config.DatabaseConfig) map[string]string {
	details := make(map[string]string)

	switch {
	case cfg.URL != "":
		details["connection_type"] = "direct"
		details["database_url"] = redactPassword(cfg.URL)
	case cfg.InstanceConnectionName != "":
		details["connection_type"] = "cloud_sql"
		details["instance"] = cfg.InstanceConnectionName
		details["user"] = cfg.User
		details["database"] = cfg.Name
		details["socket_path"] = socketPath(cfg.InstanceConnectionName)
	default:
		details["connection_type"] = "none"
	}

	return details
}

func socketPath(instance string) string {
	return fmt.Sprintf("/cloudsql/%s", instance)
}

func redactPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
