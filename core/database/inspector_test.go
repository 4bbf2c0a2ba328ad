package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE deployments (id TEXT PRIMARY KEY, account_id TEXT, status TEXT, created_at INTEGER)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "deployments")
	assert.NoError(t, err)
	assert.Len(t, columns, 4)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "text", colMap["id"])
	assert.Equal(t, "integer", colMap["created_at"])

	// PRAGMA table_info returns no rows for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestRequireColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE applications (id TEXT, account_id TEXT, created_at INTEGER)").Error)

	assert.NoError(t, RequireColumns(db, "applications", "id", "ACCOUNT_ID", "created_at"))

	err = RequireColumns(db, "applications", "id", "status", "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status, name")

	err = RequireColumns(db, "nope", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestGetTableColumns_MySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("ID", "VARCHAR(64)", "NO", "PRI", nil, "").
		AddRow("status", "varchar(32)", "YES", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `deployments`").WillReturnRows(rows)

	columns, err := GetTableColumns(db, "deployments")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "varchar(64)", columns[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
