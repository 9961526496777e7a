// Package target opens destination databases by connection URL scheme.
package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"example.com/runlog/internal/config"
	"example.com/runlog/internal/dashboard"
	"example.com/runlog/internal/loader"
	"example.com/runlog/internal/persistence"
	"example.com/runlog/internal/persistence/postgres"
	"example.com/runlog/internal/persistence/sqlstore"
)

// ErrUnsupportedScheme is returned for URLs no writer understands.
var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// Driver identifies the writer implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Endpoint is a parsed connection URL in the form its driver expects.
type Endpoint struct {
	Driver Driver
	DSN    string
}

// Parse resolves a connection URL. Scheme suffixes such as "+psycopg2" or
// "+pymysql" are ignored.
func Parse(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "file:") {
		return Endpoint{Driver: DriverSQLite, DSN: raw}, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, redact(raw))
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch base {
	case "postgres", "postgresql":
		return Endpoint{Driver: DriverPostgres, DSN: "postgres://" + rest}, nil
	case "mysql":
		dsn, err := mysqlDSN("mysql://" + rest)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{Driver: DriverMySQL, DSN: dsn}, nil
	case "sqlite", "sqlite3":
		return Endpoint{Driver: DriverSQLite, DSN: sqlitePath(rest)}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// mysqlDSN converts a URL into the go-sql-driver DSN format.
func mysqlDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql url: %w", err)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[key] = values[0]
	}
	return cfg.FormatDSN(), nil
}

// sqlitePath maps the part after "sqlite://" to a file path: "/runlog.db" is
// relative, "//var/runlog.db" absolute, and an empty path is in-memory.
func sqlitePath(rest string) string {
	path := strings.TrimPrefix(rest, "/")
	if path == "" {
		return ":memory:"
	}
	return path
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}

// Open connects to t and returns it as a load destination.
func Open(ctx context.Context, t config.Target, chunkSize int) (loader.Target, error) {
	ep, err := Parse(t.URL)
	if err != nil {
		return nil, err
	}
	switch ep.Driver {
	case DriverPostgres:
		return postgres.Open(ctx, t.Name, ep.DSN)
	case DriverMySQL:
		return sqlstore.Open(ctx, t.Name, "mysql", ep.DSN, persistence.MySQL, chunkSize)
	default:
		return sqlstore.Open(ctx, t.Name, "sqlite", ep.DSN, persistence.SQLite, chunkSize)
	}
}

// Opener adapts Open to loader.Opener.
func Opener(chunkSize int) loader.Opener {
	return func(ctx context.Context, t config.Target) (loader.Target, error) {
		return Open(ctx, t, chunkSize)
	}
}

// Reader is a run source that must be closed.
type Reader interface {
	dashboard.RunSource
	Close() error
}

// OpenReader connects to rawURL for the dashboard read model.
func OpenReader(ctx context.Context, rawURL string) (Reader, error) {
	ep, err := Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch ep.Driver {
	case DriverPostgres:
		return postgres.Open(ctx, "dashboard", ep.DSN)
	case DriverMySQL:
		return sqlstore.Open(ctx, "dashboard", "mysql", ep.DSN, persistence.MySQL, 0)
	default:
		return sqlstore.Open(ctx, "dashboard", "sqlite", ep.DSN, persistence.SQLite, 0)
	}
}
