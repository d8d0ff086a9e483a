package session

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Open connects to the database described by c and returns a session
// compiling for its dialect.
func Open(c *Config, opts ...Option) (*Session, error) {
	cc := *c
	cc.setDefaults()
	c = &cc

	d, err := c.SelqDialect()
	if err != nil {
		return nil, err
	}

	db, err := openDB(c)
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}

	logger, err := c.NewLogger()
	if err != nil {
		db.Close()
		return nil, err
	}

	opts = append([]Option{
		WithDialect(d),
		WithLogger(logger),
		WithStatementCache(c.StatementCache),
	}, opts...)

	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func openDB(c *Config) (*sqlx.DB, error) {
	switch c.Driver {
	case "sqlite", "sqlite3":
		db, err := sql.Open("sqlite", c.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		// an in-memory database lives as long as its connection
		if c.DSN == ":memory:" {
			db.SetMaxOpenConns(1)
		}
		return sqlx.NewDb(db, "sqlite"), nil

	case "postgres", "postgresql", "pgx":
		pc, err := pgx.ParseConfig(c.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "parse postgres dsn")
		}
		return sqlx.NewDb(stdlib.OpenDB(*pc), "pgx"), nil

	case "mysql", "mariadb":
		mc, err := mysql.ParseDSN(c.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "parse mysql dsn")
		}
		mc.ParseTime = true

		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, errors.Wrap(err, "mysql connector")
		}
		return sqlx.NewDb(sql.OpenDB(connector), "mysql"), nil
	}

	return nil, errors.Errorf("unsupported driver %q: supported drivers are sqlite, postgres, mysql", c.Driver)
}
