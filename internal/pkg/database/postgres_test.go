package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(models.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Username: "trackwash",
		Password: "pw",
		Database: "bookings",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://trackwash:pw@db:5432/bookings?sslmode=disable", dsn)
}

func TestPostgresClientFromDB(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	client := NewPostgresClientFromDB(sqlx.NewDb(mockDB, "sqlmock"))
	assert.NotNil(t, client.GetDB())

	mock.ExpectClose()
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresClient_Unreachable(t *testing.T) {
	_, err := NewPostgresClient(models.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Username: "x",
		Database: "x",
		SSLMode:  "disable",
	})
	assert.Error(t, err)
}

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "payments_one_processing_per_booking"}

	name, ok := UniqueViolation(fmt.Errorf("insert payment: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, "payments_one_processing_per_booking", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}
