// Package layout holds the spreadsheet column descriptor: which columns a
// report carries, their data type and display order. The descriptor is
// externally supplied JSON with a built-in default.
package layout

import (
	"encoding/json"
	"os"
	"sort"

	"go.uber.org/zap"
)

// Column describes one report column.
type Column struct {
	Type  string `json:"tipo"`
	Order int    `json:"ordem"`
}

// Layout maps column names to their descriptors.
type Layout map[string]Column

// Default returns the built-in column layout.
func Default() Layout {
	return Layout{
		"CFOP":                  {Type: "str", Order: 1},
		"Data Emissão":          {Type: "date", Order: 2},
		"Emitente CNPJ/CPF":     {Type: "str", Order: 3},
		"Destinatário CNPJ/CPF": {Type: "str", Order: 4},
		"Chassi":                {Type: "str", Order: 5},
		"Placa":                 {Type: "str", Order: 6},
		"Produto":               {Type: "str", Order: 7},
		"Valor Total":           {Type: "float", Order: 8},
		"Renavam":               {Type: "str", Order: 9},
		"KM":                    {Type: "int", Order: 10},
		"Ano Modelo":            {Type: "int", Order: 11},
		"Ano Fabricação":        {Type: "int", Order: 12},
		"Cor":                   {Type: "str", Order: 13},
		"Motor":                 {Type: "str", Order: 14},
		"Combustível":           {Type: "str", Order: 15},
		"Potência":              {Type: "float", Order: 16},
		"Modelo":                {Type: "str", Order: 17},
		"Natureza Operação":     {Type: "str", Order: 99},
		"CHAVE XML":             {Type: "str", Order: 100},
	}
}

// Load reads a layout descriptor from a JSON file, falling back to the
// built-in default when the file is missing or malformed.
func Load(path string, logger *zap.Logger) Layout {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read column layout, using default",
			zap.String("path", path), zap.Error(err))
		return Default()
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil || len(l) == 0 {
		logger.Warn("Failed to parse column layout, using default",
			zap.String("path", path), zap.Error(err))
		return Default()
	}
	return l
}

// OrderedColumns returns the column names sorted by display order.
func (l Layout) OrderedColumns() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := l[names[i]], l[names[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return names[i] < names[j]
	})
	return names
}
