package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
	assert.NoError(t, err)
	return string(data)
}

// Tool and kit rows are inserted first and their label code is stamped in a
// follow-up update, so the schema must accept a row without a code while
// still keeping stamped codes unique.
func TestLabelCodeColumnsAllowStampAfterInsert(t *testing.T) {
	cases := []struct {
		migration string
		column    string
		index     string
	}{
		{"000002_create_tools.up.sql", "tool_code", "idx_tools_tool_code"},
		{"000003_create_kits.up.sql", "kit_code", "idx_kits_kit_code"},
	}

	for _, tc := range cases {
		t.Run(tc.column, func(t *testing.T) {
			sql := readMigration(t, tc.migration)

			assert.NotContains(t, sql, tc.column+" VARCHAR(100) NOT NULL UNIQUE")
			assert.Contains(t, sql, tc.column+" VARCHAR(100) NOT NULL DEFAULT ''")
			assert.Contains(t, sql, "CREATE UNIQUE INDEX "+tc.index)
			assert.Contains(t, sql, "WHERE "+tc.column+" <> ''")
		})
	}
}
