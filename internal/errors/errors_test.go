package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportError(t *testing.T) {
	t.Run("message includes table and columns", func(t *testing.T) {
		err := MissingColumns("wide_table", "qc_type", "batch")
		assert.Equal(t, CodeMissingColumn, err.Code)
		assert.Contains(t, err.Error(), "wide_table")
		assert.Contains(t, err.Error(), "qc_type, batch")
	})

	t.Run("wraps causes", func(t *testing.T) {
		cause := stderrors.New("file vanished")
		err := WrapImport("istd_map", cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "file vanished")
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		err := fmt.Errorf("stage assemble: %w", NewImportError(CodeEmptyTable, "wide_table", "no data rows"))
		assert.True(t, IsImport(err))

		var ie *ImportError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, CodeEmptyTable, ie.Code)
	})

	t.Run("ordinary errors are not import errors", func(t *testing.T) {
		assert.False(t, IsImport(stderrors.New("boom")))
		assert.False(t, IsImport(nil))
	})
}
