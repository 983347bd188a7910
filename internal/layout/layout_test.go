package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrderedColumns(t *testing.T) {
	cols := Default().OrderedColumns()
	require.Len(t, cols, 19)
	assert.Equal(t, "CFOP", cols[0])
	assert.Equal(t, "Data Emissão", cols[1])
	assert.Equal(t, "Natureza Operação", cols[17])
	assert.Equal(t, "CHAVE XML", cols[18])
}

func TestOrderedColumnsTiesBreakByName(t *testing.T) {
	l := Layout{
		"B": {Type: "str", Order: 1},
		"A": {Type: "str", Order: 1},
		"C": {Type: "str", Order: 0},
	}
	assert.Equal(t, []string{"C", "A", "B"}, l.OrderedColumns())
}

func TestLoadFallsBackToDefault(t *testing.T) {
	logger := zap.NewNop()

	assert.Equal(t, Default(), Load("", logger))
	assert.Equal(t, Default(), Load("/nonexistent/layout.json", logger))

	bad := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(bad, []byte("{broken"), 0o644))
	assert.Equal(t, Default(), Load(bad, logger))
}

func TestLoadCustomLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	content := `{"Chassi": {"tipo": "str", "ordem": 1}, "Placa": {"tipo": "str", "ordem": 2}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := Load(path, zap.NewNop())
	assert.Equal(t, []string{"Chassi", "Placa"}, l.OrderedColumns())
}
