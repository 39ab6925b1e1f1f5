package internal_test

import (
	"testing"

	"github.com/sagarc03/itemgate/database/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareColumns(t *testing.T) {
	expected := map[string]internal.Column{
		"key":  {Type: "text"},
		"data": {Type: "blob"},
		"etag": {Type: "text"},
	}

	t.Run("match ignores case and extra columns", func(t *testing.T) {
		actual := map[string]internal.Column{
			"key":   {Type: "TEXT"},
			"data":  {Type: "BLOB"},
			"etag":  {Type: "text"},
			"extra": {Type: "integer", Nullable: true},
		}
		assert.NoError(t, internal.CompareColumns("objects", expected, actual))
	})

	t.Run("differences", func(t *testing.T) {
		actual := map[string]internal.Column{
			"key":  {Type: "integer"},
			"etag": {Type: "text", Nullable: true},
		}

		err := internal.CompareColumns("objects", expected, actual)

		var schemaErr *internal.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "objects", schemaErr.Table)
		assert.Equal(t, []string{"data"}, schemaErr.Missing)
		assert.Equal(t, []string{
			"etag: expected nullable=false, got nullable=true",
			"key: expected text, got integer",
		}, schemaErr.Mismatched)
		assert.Contains(t, err.Error(), "missing columns: data")
	})
}
