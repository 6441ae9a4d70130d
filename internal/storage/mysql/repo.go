// Package mysql registers the MySQL and MariaDB backends
// (go-sql-driver/mysql). Both engines share one driver and one SQL dialect
// apart from the tag.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"fileflow/internal/dialect"
	"fileflow/internal/storage"
	"fileflow/internal/storage/sqldb"
)

func init() {
	storage.Register(string(dialect.MySQL), New)
	storage.Register(string(dialect.MariaDB), New)
}

// New opens a MySQL or MariaDB database, depending on cfg.Kind.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	tag, err := dialect.Parse(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if tag != dialect.MySQL && tag != dialect.MariaDB {
		return nil, fmt.Errorf("mysql: unexpected kind %q", cfg.Kind)
	}

	mcfg, err := Config(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("%s: connector: %w", tag, err)
	}

	db := sql.OpenDB(connector)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", tag, err)
	}

	d, _ := dialect.For(tag)
	return sqldb.New(db, d, nil), nil
}

// Config parses cfg.DSN, or builds a TCP config from the parts when DSN is
// empty.
func Config(cfg storage.Config) (*mysql.Config, error) {
	if cfg.DSN != "" {
		mcfg, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("mysql: parse dsn: %w", err)
		}
		return mcfg, nil
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mcfg := mysql.NewConfig()
	mcfg.User = cfg.User
	mcfg.Passwd = cfg.Password
	mcfg.Net = "tcp"
	mcfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mcfg.DBName = cfg.Database
	return mcfg, nil
}
