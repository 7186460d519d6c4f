package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, int64(1), first.Version)
	assert.Contains(t, first.Up, "CREATE TABLE IF NOT EXISTS lots")
	assert.Contains(t, first.Up, "UNIQUE (branch_id, product_id, lot_number)")
	assert.NotContains(t, first.Up, "DROP TABLE")
}

func TestUpSection(t *testing.T) {
	src := "-- +goose Up\nCREATE TABLE a ();\n-- +goose Down\nDROP TABLE a;\n"

	assert.Equal(t, "CREATE TABLE a ();", upSection(src))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}
