package nfe

import "time"

// Direction indicates the movement a fiscal document represents for the
// company: goods entering (purchase) or leaving (sale).
type Direction string

const (
	DirectionInbound      Direction = "Entrada"
	DirectionOutbound     Direction = "Saída"
	DirectionUndetermined Direction = "Indefinido"
)

// Category separates vehicle line items from everything else on a document.
type Category string

const (
	CategoryVehicle Category = "Veículo"
	CategoryOther   Category = "Consumo"
)

// DocumentHeader holds the per-document fields shared by every line item.
// Immutable once extracted.
type DocumentHeader struct {
	Number          string     `json:"numero_nf"`
	AccessKey       string     `json:"chave_xml"`
	IssuerID        string     `json:"emitente"`
	RecipientID     string     `json:"destinatario"`
	CFOP            string     `json:"cfop"`
	IssuedAt        *time.Time `json:"data_emissao"`
	TotalValue      *float64   `json:"valor_total"`
	OperationNature string     `json:"natureza_operacao"`
}

// ICMSInfo carries the ICMS tax block of a single line item.
type ICMSInfo struct {
	Rate          *float64 `json:"aliquota"`
	Value         *float64 `json:"valor"`
	Base          *float64 `json:"base"`
	CST           *string  `json:"cst"`
	BaseReduction *float64 `json:"reducao_bc"`
	BaseModality  *string  `json:"modalidade_bc"`
}

// VehicleInfo holds the attributes extracted from the free-text product
// description. Every field is declared here even when nothing could be
// extracted; downstream joins rely on the columns always existing.
type VehicleInfo struct {
	Chassis         *string  `json:"chassi"`
	Plate           *string  `json:"placa"`
	Renavam         *string  `json:"renavam"`
	Odometer        *float64 `json:"km"`
	ModelYear       *int     `json:"ano_modelo"`
	ManufactureYear *int     `json:"ano_fabricacao"`
	Color           *string  `json:"cor"`
	Engine          *string  `json:"motor"`
	Fuel            *string  `json:"combustivel"`
	Model           *string  `json:"modelo"`
	Power           *float64 `json:"potencia"`
}

// LineItem is one line item of a document (or a synthetic header-only entry
// when the document declares no items).
type LineItem struct {
	DocumentHeader
	SourcePath string      `json:"xml_path"`
	Item       int         `json:"item"`
	Product    string      `json:"produto"`
	ItemValue  *float64    `json:"valor_item"`
	ICMS       ICMSInfo    `json:"icms"`
	Vehicle    VehicleInfo `json:"veiculo"`
}

// Record is a LineItem augmented with the classification outcome.
type Record struct {
	LineItem
	Direction Direction `json:"tipo_nota"`
	Advisory  string    `json:"alerta,omitempty"`
	Category  Category  `json:"classificacao"`
}
