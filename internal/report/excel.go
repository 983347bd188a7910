package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/fiscal"
	"github.com/openfiscal/estoque-veiculos/internal/layout"
	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
)

// Sheet names of the generated workbook.
const (
	SheetSold      = "Veículos Vendidos"
	SheetStock     = "Veículos em Estoque"
	SheetOrphans   = "Saídas sem Entrada"
	SheetMonthly   = "Resumo Mensal"
	SheetQuarterly = "Apuração Trimestral"
	SheetAlerts    = "Alertas Auditoria"
	SheetKPIs      = "KPIs"
)

// Data bundles everything the workbook renders.
type Data struct {
	Lifecycle []pipeline.LifecycleRecord
	Monthly   []fiscal.MonthlySummaryRow
	Quarterly []fiscal.QuarterlyTaxRow
	KPIs      fiscal.KPISet
	Alerts    []pipeline.Alert
}

// Writer renders the reconciliation outputs into an Excel workbook, with
// vehicle columns ordered by the layout descriptor.
type Writer struct {
	layout layout.Layout
	logger *zap.Logger
}

// NewWriter creates an Excel report writer.
func NewWriter(l layout.Layout, logger *zap.Logger) *Writer {
	return &Writer{layout: l, logger: logger}
}

// Write generates the workbook at path.
func (w *Writer) Write(path string, data Data) error {
	w.logger.Info("Generating Excel report", zap.String("path", path))

	f := excelize.NewFile()
	defer f.Close()

	w.writeVehicleSheet(f, SheetSold, filterByStatus(data.Lifecycle, pipeline.StatusSold))
	w.writeVehicleSheet(f, SheetStock, filterByStatus(data.Lifecycle, pipeline.StatusInStock))
	w.writeVehicleSheet(f, SheetOrphans, filterByStatus(data.Lifecycle, pipeline.StatusOrphanOutbound))
	w.writeMonthlySheet(f, data.Monthly)
	w.writeQuarterlySheet(f, data.Quarterly)
	w.writeAlertsSheet(f, data.Alerts)
	w.writeKPISheet(f, data.KPIs)

	// drop the workbook's default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		w.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel report: %w", err)
	}

	w.logger.Info("Excel report generated", zap.String("path", path))
	return nil
}

func filterByStatus(records []pipeline.LifecycleRecord, status pipeline.Status) []pipeline.LifecycleRecord {
	var out []pipeline.LifecycleRecord
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func (w *Writer) writeVehicleSheet(f *excelize.File, sheet string, records []pipeline.LifecycleRecord) {
	f.NewSheet(sheet)

	columns := w.layout.OrderedColumns()
	headers := append([]string{"Chave", "Situação"}, columns...)
	headers = append(headers, "Valor Entrada", "Valor Venda", "Lucro", "Data Saída")
	w.writeHeaderRow(f, sheet, headers)

	for i, r := range records {
		row := i + 2
		side := primarySide(r)
		values := []interface{}{r.Key, string(r.Status)}
		for _, col := range columns {
			values = append(values, columnValue(side, col))
		}
		outboundDate := ""
		if r.Outbound != nil {
			outboundDate = FormatShortDate(r.Outbound.IssuedAt)
		}
		values = append(values, r.InboundValue, r.OutboundValue, r.Profit, outboundDate)
		w.writeRow(f, sheet, row, values)
	}
}

// primarySide picks the side the vehicle columns are rendered from: the
// purchase when present, otherwise the orphan sale.
func primarySide(r pipeline.LifecycleRecord) *pipeline.VehicleRecord {
	if r.Inbound != nil {
		return r.Inbound
	}
	return r.Outbound
}

func columnValue(side *pipeline.VehicleRecord, name string) interface{} {
	if side == nil {
		return ""
	}
	v := side.Vehicle
	switch name {
	case "CFOP":
		return side.CFOP
	case "Data Emissão":
		return FormatShortDate(side.IssuedAt)
	case "Emitente CNPJ/CPF":
		return side.IssuerID
	case "Destinatário CNPJ/CPF":
		return side.RecipientID
	case "Chassi":
		return derefString(v.Chassis)
	case "Placa":
		return derefString(v.Plate)
	case "Produto":
		return side.Product
	case "Valor Total":
		return derefFloat(side.TotalValue)
	case "Renavam":
		return derefString(v.Renavam)
	case "KM":
		return derefFloat(v.Odometer)
	case "Ano Modelo":
		return derefInt(v.ModelYear)
	case "Ano Fabricação":
		return derefInt(v.ManufactureYear)
	case "Cor":
		return derefString(v.Color)
	case "Motor":
		return derefString(v.Engine)
	case "Combustível":
		return derefString(v.Fuel)
	case "Potência":
		return derefFloat(v.Power)
	case "Modelo":
		return derefString(v.Model)
	case "Natureza Operação":
		return side.OperationNature
	case "CHAVE XML":
		return side.AccessKey
	default:
		return ""
	}
}

func (w *Writer) writeMonthlySheet(f *excelize.File, rows []fiscal.MonthlySummaryRow) {
	f.NewSheet(SheetMonthly)
	w.writeHeaderRow(f, SheetMonthly, []string{
		"Empresa CNPJ", "Mês", "Total Entradas", "Total Saídas", "Lucro Bruto",
		"ICMS Débito", "ICMS Crédito", "Lucro Líquido", "Saldo Estoque",
	})
	for i, r := range rows {
		w.writeRow(f, SheetMonthly, i+2, []interface{}{
			r.CompanyID, FormatMonth(r.Month), r.TotalInbound, r.TotalOutbound,
			r.GrossProfit, r.TaxDebit, r.TaxCredit, r.NetProfit, r.StockBalance,
		})
	}
}

func (w *Writer) writeQuarterlySheet(f *excelize.File, rows []fiscal.QuarterlyTaxRow) {
	f.NewSheet(SheetQuarterly)
	w.writeHeaderRow(f, SheetQuarterly, []string{
		"Trimestre", "Lucro", "ICMS Presumido", "PIS/COFINS Presumido",
		"Base IRPJ/CSLL", "IRPJ", "Adicional IRPJ", "CSLL",
		"Total Tributos", "Lucro Líquido",
	})
	for i, r := range rows {
		w.writeRow(f, SheetQuarterly, i+2, []interface{}{
			FormatShortDate(&r.Quarter), r.Profit, r.ICMSPresumed, r.PISCOFINSPresumed,
			r.IRPJCSLLBase, r.IRPJ, r.IRPJSurcharge, r.CSLL, r.TotalTax, r.NetProfit,
		})
	}
}

func (w *Writer) writeAlertsSheet(f *excelize.File, alerts []pipeline.Alert) {
	f.NewSheet(SheetAlerts)
	w.writeHeaderRow(f, SheetAlerts, []string{"Tipo", "Chave", "Erro", "XML Path"})
	for i, a := range alerts {
		w.writeRow(f, SheetAlerts, i+2, []interface{}{a.Direction, a.Key, a.Kind, a.SourcePath})
	}
}

func (w *Writer) writeKPISheet(f *excelize.File, kpis fiscal.KPISet) {
	f.NewSheet(SheetKPIs)
	w.writeHeaderRow(f, SheetKPIs, []string{"KPI", "Valor"})
	rows := []struct {
		name  string
		value float64
	}{
		{"Total Vendido (R$)", kpis.TotalSold},
		{"Lucro Bruto (R$)", kpis.GrossProfit},
		{"ICMS Débito (R$)", kpis.TaxDebit},
		{"ICMS Crédito (R$)", kpis.TaxCredit},
		{"ICMS Apurado (R$)", kpis.NetTax},
		{"Lucro Líquido (R$)", kpis.NetProfit},
		{"Estoque Atual (R$)", kpis.StockValue},
	}
	for i, r := range rows {
		w.writeRow(f, SheetKPIs, i+2, []interface{}{r.name, FormatCurrency(r.value)})
	}
}

func (w *Writer) writeHeaderRow(f *excelize.File, sheet string, headers []string) {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	w.writeRow(f, sheet, 1, values)
}

func (w *Writer) writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			w.logger.Warn("Failed to resolve cell coordinates",
				zap.String("sheet", sheet), zap.Int("row", row), zap.Error(err))
			continue
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			w.logger.Warn("Failed to set cell value",
				zap.String("sheet", sheet), zap.String("cell", cell), zap.Error(err))
		}
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func derefInt(i *int) interface{} {
	if i == nil {
		return ""
	}
	return *i
}
