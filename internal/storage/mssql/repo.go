// Package mssql registers the Microsoft SQL Server backend
// (microsoft/go-mssqldb).
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"

	"fileflow/internal/dialect"
	"fileflow/internal/storage"
	"fileflow/internal/storage/sqldb"
)

func init() {
	storage.Register(string(dialect.MSSQL), New)
}

// New opens a SQL Server database and validates connectivity via PingContext.
//
// Conservative pool defaults are kept for bursty batch loads.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	connector, err := mssql.NewConnector(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("mssql: connector: %w", err)
	}

	db := sql.OpenDB(connector)
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 16
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	d, _ := dialect.For(dialect.MSSQL)
	return sqldb.New(db, d, nil), nil
}

// DSN returns cfg.DSN or a sqlserver:// URL built from the parts.
//
// Example:
//
//	{Host: "db", User: "sa", Password: "x", Database: "etl"}
//	  -> sqlserver://sa:x@db:1433?database=etl
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	u := url.URL{
		Scheme: "sqlserver",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.Database != "" {
		q := url.Values{}
		q.Set("database", cfg.Database)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
