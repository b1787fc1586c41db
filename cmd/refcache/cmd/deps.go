package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/entity"
	logruslog "github.com/goliatone/go-repository-service/log/logrus"
	sloglog "github.com/goliatone/go-repository-service/log/slog"
	zaplog "github.com/goliatone/go-repository-service/log/zap"
	promhooks "github.com/goliatone/go-repository-service/metrics/prometheus"
	"github.com/goliatone/go-repository-service/store"
	"github.com/goliatone/go-repository-service/store/bunstore"
	"github.com/goliatone/go-repository-service/store/memstore"
)

// User is the record the demo stores and caches.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	entity.BaseEntity
	Name  string `json:"name" bun:"name"`
	Email string `json:"email" bun:"email,unique"`
}

func newLogger(kind string, debug bool, out io.Writer) (cache.Logger, func(), error) {
	switch kind {
	case "zap":
		level := zapcore.InfoLevel
		if debug {
			level = zapcore.DebugLevel
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(out),
			level,
		)
		l := zap.New(core)
		return zaplog.New(l), func() { _ = l.Sync() }, nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(out)
		if debug {
			l.SetLevel(logrus.DebugLevel)
		}
		return logruslog.New(l), func() {}, nil
	case "slog":
		level := stdslog.LevelInfo
		if debug {
			level = stdslog.LevelDebug
		}
		h := stdslog.NewTextHandler(out, &stdslog.HandlerOptions{Level: level})
		return sloglog.Logger{L: stdslog.New(h)}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown logger %q", kind)
}

func openStore(ctx context.Context, s settings) (store.Store[User], func() error, error) {
	var (
		driver  string
		dsn     string
		dialect func() schema.Dialect
	)
	switch s.Store {
	case "memory":
		return memstore.New[User](), func() error { return nil }, nil
	case "sqlite":
		driver, dsn = "sqlite3", s.SQLite.DSN
		dialect = func() schema.Dialect { return sqlitedialect.New() }
	case "postgres":
		if s.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("postgres store needs postgres.dsn")
		}
		driver, dsn = "postgres", s.Postgres.DSN
		dialect = func() schema.Dialect { return pgdialect.New() }
	default:
		return nil, nil, fmt.Errorf("unknown store %q", s.Store)
	}

	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sql open: %w", err)
	}
	if driver == "sqlite3" {
		// one connection keeps a shared in-memory database alive
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, dialect())
	st := bunstore.New[User](db)
	if err := st.CreateTable(ctx); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return st, db.Close, nil
}

func newMetrics(enabled bool) (*prometheus.Registry, cache.Hooks, error) {
	if !enabled {
		return nil, cache.NopHooks{}, nil
	}
	reg := prometheus.NewRegistry()
	hooks, err := promhooks.NewHooks(reg, "refcache")
	if err != nil {
		return nil, nil, err
	}
	return reg, hooks, nil
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
		}
	}
	return nil
}
