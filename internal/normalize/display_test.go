package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/model"
)

func TestFormatForDisplay(t *testing.T) {
	record, _ := Normalize(completeDraft())

	table, err := FormatForDisplay(&record)
	require.NoError(t, err)

	require.Len(t, table.Fields, len(model.DisplayLabels))
	require.Len(t, table.Details, len(table.Fields))
	assert.Equal(t, model.DisplayLabels, table.Fields)

	rows := map[string]string{}
	for _, row := range table.Rows() {
		rows[row[0]] = row[1]
	}
	assert.Equal(t, "Jane Doe, John Smith", rows["Directors & Shareholders"])
	assert.Equal(t, "GB123456", rows["Registration Number"])
	assert.Equal(t, model.Sentinel, rows["UBO"])
	assert.Equal(t, "info@acme.example", rows["Email"])
}

func TestFormatForDisplay_Fallback(t *testing.T) {
	record := Fallback()

	table, err := FormatForDisplay(&record)
	require.NoError(t, err)

	for i, detail := range table.Details {
		assert.NotEmpty(t, detail, table.Fields[i])
	}
	assert.Equal(t, model.Sentinel, table.Details[6])
	assert.Equal(t, model.EpochPlaceholder, table.Details[5])
}

func TestFormatForDisplay_Invalid(t *testing.T) {
	table, err := FormatForDisplay(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidRecord))
	assert.Equal(t, model.ErrorTable(), table)

	broken := Fallback()
	broken.DirectorsShareholders = nil
	_, err = FormatForDisplay(&broken)
	assert.Error(t, err)
}
