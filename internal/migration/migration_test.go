package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, schema := range []Schema{SchemaCourses, SchemaUsers} {
		entries, err := fs.ReadDir(embeddedMigrations, "sql/"+string(schema))
		require.NoError(t, err)

		names := map[string]bool{}
		for _, e := range entries {
			names[e.Name()] = true
		}
		assert.True(t, names["000001_init.up.sql"], schema)
		assert.True(t, names["000001_init.down.sql"], schema)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil, SchemaUsers))
}

func TestSchemaLeavesLookupKeysNonUnique(t *testing.T) {
	for _, file := range []string{"sql/courses/000001_init.up.sql", "sql/users/000001_init.up.sql"} {
		raw, err := fs.ReadFile(embeddedMigrations, file)
		require.NoError(t, err)
		assert.NotContains(t, strings.ToUpper(string(raw)), "UNIQUE", file)
	}
}
