package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
)

type sampleRecord struct {
	entity.BaseEntity
	Code    string `db:"code"`
	Ignored string `db:"-"`
}

func TestExtractDBColumns_FlattensBaseEntity(t *testing.T) {
	cols := ExtractDBColumns[sampleRecord]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "code"}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	rec := &sampleRecord{
		BaseEntity: entity.BaseEntity{ID: id.New(), Version: 3, CreatedAt: now, UpdatedAt: now},
		Code:       "C-1",
		Ignored:    "x",
	}

	m := StructToMap(rec)

	assert.Len(t, m, 5)
	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "C-1", m["code"])
	assert.NotContains(t, m, "-")

	var nilRec *sampleRecord
	assert.Nil(t, StructToMap(nilRec))
}

func TestPick(t *testing.T) {
	data := map[string]any{"id": 1, "code": "A", "extra": true}

	got := Pick(data, []string{"id", "code", "missing"}, "id")

	assert.Equal(t, map[string]any{"code": "A"}, got)
}
