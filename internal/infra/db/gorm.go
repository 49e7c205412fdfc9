package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Options はDSNが空のときに使う接続情報。
type Options struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// DSN は DSN があればそれを、無ければ個別の項目から組み立てる。
func (o Options) dsn() string {
	if o.DSN != "" {
		return o.DSN
	}
	ssl := o.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.Name, ssl,
	)
}

// OpenSQL はトレース付きの *sql.DB を開く（migrateでも使う）。
func OpenSQL(o Options) (*sql.DB, error) {
	sqlDB, err := otelsql.Open("postgres", o.dsn(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, err
	}
	if _, err := otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(semconv.DBSystemPostgreSQL)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return sqlDB, nil
}

// Connect はDBに接続して *gorm.DB を返す。
func Connect(o Options) (*gorm.DB, error) {
	sqlDB, err := OpenSQL(o)
	if err != nil {
		return nil, err
	}
	return FromSQL(sqlDB)
}

// FromSQL は既存の接続をgormで包む（テストではsqlmockを渡す）。
func FromSQL(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
}
