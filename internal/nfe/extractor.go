package nfe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbackDecoders is the ordered retry ladder applied when a document is
// not valid UTF-8.
var fallbackDecoders = []*encoding.Decoder{
	charmap.ISO8859_1.NewDecoder(),
	charmap.Windows1252.NewDecoder(),
}

var tzSuffix = regexp.MustCompile(`[-+]\d{2}:\d{2}$`)

// emissionDateLayouts are tried in order against the emission timestamp,
// then again after stripping a trailing timezone offset.
var emissionDateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Extractor parses fiscal XML documents into flat line item records. It is
// safe for concurrent use: extraction touches no shared mutable state.
type Extractor struct {
	rules   *CompiledRules
	baseDir string
	logger  *zap.Logger
}

// NewExtractor compiles the rule set and returns an extractor restricted to
// files under baseDir. An empty baseDir allows any readable path.
func NewExtractor(rules *Rules, baseDir string, logger *zap.Logger) (*Extractor, error) {
	compiled, err := rules.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction rules: %w", err)
	}
	if baseDir != "" {
		if baseDir, err = filepath.Abs(baseDir); err != nil {
			return nil, fmt.Errorf("failed to resolve base directory: %w", err)
		}
	}
	return &Extractor{rules: compiled, baseDir: baseDir, logger: logger}, nil
}

// Rules exposes the compiled rule set, shared with classification and
// consolidation steps.
func (e *Extractor) Rules() *CompiledRules { return e.rules }

// ExtractFile parses one document into its line item records. Documents with
// no items yield a single header-only record. Failures never abort the
// caller's batch: document-level errors yield no records, item-level errors
// skip the item; all are returned for accumulation.
func (e *Extractor) ExtractFile(path string) ([]LineItem, []*DocumentError) {
	root, ns, docErr := e.parseDocument(path)
	if docErr != nil {
		return nil, []*DocumentError{docErr}
	}

	header := e.extractHeader(root, ns)
	e.logger.Debug("Processing document",
		zap.String("path", path),
		zap.String("number", header.Number))

	items := root.findAll(ns, "det")
	if len(items) == 0 {
		e.logger.Info("Document has no line items, keeping header-only record",
			zap.String("path", path))
		return []LineItem{{DocumentHeader: header, SourcePath: path, Item: 1}}, nil
	}

	records := make([]LineItem, 0, len(items))
	var errs []*DocumentError
	for i, item := range items {
		record, err := e.extractItem(header, path, i+1, item, ns)
		if err != nil {
			errs = append(errs, newDocumentError(ErrExtraction, path, err))
			continue
		}
		records = append(records, record)
	}

	e.logger.Debug("Document processed",
		zap.String("path", path),
		zap.Int("records", len(records)))
	return records, errs
}

// parseDocument validates the path, decodes the byte stream and builds the
// element tree, reporting the document's namespace (empty when the root
// declares none).
func (e *Extractor) parseDocument(path string) (*xmlNode, string, *DocumentError) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", newDocumentError(ErrAccessDenied, path, err)
	}
	if e.baseDir != "" && !strings.HasPrefix(abs, e.baseDir) {
		e.logger.Error("Document path escapes the permitted base directory",
			zap.String("path", path), zap.String("base_dir", e.baseDir))
		return nil, "", newDocumentError(ErrAccessDenied, path, nil)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			e.logger.Warn("Document not found, skipping", zap.String("path", path))
			return nil, "", newDocumentError(ErrNotFound, path, err)
		}
		return nil, "", newDocumentError(ErrExtraction, path, err)
	}

	text, decErr := decodeText(data)
	if decErr != nil {
		e.logger.Error("No supported encoding decodes the document",
			zap.String("path", path))
		return nil, "", newDocumentError(ErrEncoding, path, decErr)
	}

	root, err := parseXMLTree(strings.NewReader(text))
	if err != nil {
		e.logger.Error("Failed to parse document",
			zap.String("path", path), zap.Error(err))
		return nil, "", newDocumentError(ErrParse, path, err)
	}

	return root, root.space, nil
}

// decodeText tries UTF-8 first, then the fallback decoder ladder.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, dec := range fallbackDecoders {
		decoded, err := dec.Bytes(bytes.Clone(data))
		if err == nil {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("content is not decodable as UTF-8, ISO-8859-1 or Windows-1252")
}

// pathFor resolves the configured field path, falling back to the built-in
// default path when the descriptor omits the field.
func (e *Extractor) pathFor(key, def string) string {
	if p, ok := e.rules.rules.FieldPaths[key]; ok && p != "" {
		return p
	}
	return def
}

func (e *Extractor) extractHeader(root *xmlNode, ns string) DocumentHeader {
	// emission timestamp: primary dhEmi, fallback legacy dEmi
	issuedText := root.findText(ns, e.pathFor("Data Emissão", ".//nfe:ide/nfe:dhEmi"))
	if issuedText == "" {
		issuedText = root.findText(ns, ".//nfe:ide/nfe:dEmi")
	}

	issuer := root.findText(ns, e.pathFor("Emitente CNPJ", ".//nfe:emit/nfe:CNPJ"))
	if issuer == "" {
		issuer = root.findText(ns, e.pathFor("Emitente CPF", ".//nfe:emit/nfe:CPF"))
	}
	recipient := root.findText(ns, e.pathFor("Destinatário CNPJ", ".//nfe:dest/nfe:CNPJ"))
	if recipient == "" {
		recipient = root.findText(ns, e.pathFor("Destinatário CPF", ".//nfe:dest/nfe:CPF"))
	}

	cfop := root.findText(ns, e.pathFor("CFOP", ".//nfe:det/nfe:prod/nfe:CFOP"))
	if cfop == "" {
		cfop = root.findText(ns, ".//CFOP")
	}

	var accessKey string
	if inf := root.findFirst(ns, []string{"infNFe"}); inf != nil {
		accessKey = inf.attr("Id")
	}

	return DocumentHeader{
		Number:          root.findText(ns, ".//nfe:ide/nfe:nNF"),
		AccessKey:       accessKey,
		IssuerID:        NormalizeID(issuer),
		RecipientID:     NormalizeID(recipient),
		CFOP:            cfop,
		IssuedAt:        parseEmissionDate(issuedText),
		TotalValue:      parseFloatPtr(root.findText(ns, e.pathFor("Valor Total", ".//nfe:total/nfe:ICMSTot/nfe:vNF"))),
		OperationNature: root.findText(ns, e.pathFor("Natureza Operação", ".//nfe:ide/nfe:natOp")),
	}
}

func (e *Extractor) extractItem(header DocumentHeader, path string, index int, item *xmlNode, ns string) (LineItem, error) {
	prod := item.findFirst(ns, []string{"prod"})
	if prod == nil {
		return LineItem{}, fmt.Errorf("item %d has no product block", index)
	}

	record := LineItem{
		DocumentHeader: header,
		SourcePath:     path,
		Item:           index,
		Product:        prod.findText(ns, "xProd"),
		ItemValue:      parseFloatPtr(prod.findText(ns, "vProd")),
		ICMS:           e.extractICMS(item, ns),
	}
	if cfop := prod.findText(ns, "CFOP"); cfop != "" {
		record.CFOP = cfop
	}
	record.Vehicle = e.extractVehicle(record.Product)
	return record, nil
}

func (e *Extractor) extractICMS(item *xmlNode, ns string) ICMSInfo {
	var info ICMSInfo
	icms := item.findFirst(ns, []string{"ICMS"})
	if icms == nil {
		return info
	}
	// the block holds one situation-specific child (ICMS00, ICMS10, ICMSSN102...)
	for _, situation := range icms.children {
		if !strings.Contains(situation.local, "ICMS") {
			continue
		}
		info.Rate = parseFloatPtr(situation.findText(ns, "pICMS"))
		info.Value = parseFloatPtr(situation.findText(ns, "vICMS"))
		info.Base = parseFloatPtr(situation.findText(ns, "vBC"))
		cst := situation.findText(ns, "CST")
		if cst == "" {
			cst = situation.findText(ns, "CSOSN")
		}
		info.CST = stringPtr(cst)
		info.BaseReduction = parseFloatPtr(situation.findText(ns, "pRedBC"))
		info.BaseModality = stringPtr(situation.findText(ns, "modBC"))
		break
	}
	return info
}

// extractVehicle runs the free-text rules over the product description.
// Every attribute is assigned, nil when unextractable.
func (e *Extractor) extractVehicle(product string) VehicleInfo {
	var v VehicleInfo
	v.Chassis = e.rules.ExtractField(FieldChassis, product)
	v.Plate = e.rules.ExtractField(FieldPlate, product)
	v.Renavam = e.rules.ExtractField(FieldRenavam, product)
	v.Color = e.rules.ExtractField(FieldColor, product)
	v.Engine = e.rules.ExtractField(FieldEngine, product)
	v.Fuel = e.rules.ExtractField(FieldFuel, product)
	v.Model = e.rules.ExtractField(FieldModel, product)

	if s := e.rules.ExtractField(FieldOdometer, product); s != nil {
		v.Odometer = parseFloatPtr(*s)
	}
	if s := e.rules.ExtractField(FieldPower, product); s != nil {
		v.Power = parseFloatPtr(strings.ReplaceAll(*s, ",", "."))
	}
	if s := e.rules.ExtractField(FieldModelYear, product); s != nil {
		if year, err := strconv.Atoi(*s); err == nil {
			v.ModelYear = &year
			// manufacture year is conventionally the year before the model year
			manufacture := year - 1
			v.ManufactureYear = &manufacture
		}
	}
	return v
}

func parseEmissionDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range emissionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	stripped := tzSuffix.ReplaceAllString(s, "")
	for _, layout := range emissionDateLayouts[1:] {
		if t, err := time.Parse(layout, stripped); err == nil {
			return &t
		}
	}
	return nil
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
