package nfe

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Field names used by the extraction rule set. They mirror the keys of the
// external rules descriptor, so a swapped-in JSON file can override any of
// them without code changes.
const (
	FieldChassis   = "Chassi"
	FieldPlate     = "Placa"
	FieldRenavam   = "Renavam"
	FieldOdometer  = "KM"
	FieldModelYear = "Ano Modelo"
	FieldColor     = "Cor"
	FieldEngine    = "Motor"
	FieldFuel      = "Combustível"
	FieldModel     = "Modelo"
	FieldPower     = "Potência"
)

// vehicleFields is the extraction order over the product description.
var vehicleFields = []string{
	FieldChassis,
	FieldPlate,
	FieldRenavam,
	FieldOdometer,
	FieldModelYear,
	FieldColor,
	FieldEngine,
	FieldFuel,
	FieldModel,
	FieldPower,
}

// Rules is the externally supplied extraction descriptor: validator patterns,
// structured field paths and free-text patterns. DefaultRules returns the
// built-in set used when no descriptor file is available.
type Rules struct {
	Validators   map[string]string `json:"validadores"`
	FieldPaths   map[string]string `json:"xpath_campos"`
	TextPatterns map[string]string `json:"regex_extracao"`
}

// DefaultRules returns the built-in extraction rule set.
func DefaultRules() *Rules {
	return &Rules{
		Validators: map[string]string{
			"chassi":         `^[A-HJ-NPR-Z0-9]{17}$`,
			"placa_mercosul": `^[A-Z]{3}[0-9][A-Z][0-9]{2}$`,
			"placa_antiga":   `^[A-Z]{3}[0-9]{4}$`,
			"renavam":        `^\d{9,11}$`,
		},
		FieldPaths: map[string]string{
			"CFOP":               ".//nfe:det/nfe:prod/nfe:CFOP",
			"Data Emissão":       ".//nfe:ide/nfe:dhEmi",
			"Emitente CNPJ":      ".//nfe:emit/nfe:CNPJ",
			"Emitente CPF":       ".//nfe:emit/nfe:CPF",
			"Destinatário CNPJ":  ".//nfe:dest/nfe:CNPJ",
			"Destinatário CPF":   ".//nfe:dest/nfe:CPF",
			"Valor Total":        ".//nfe:total/nfe:ICMSTot/nfe:vNF",
			"Produto":            ".//nfe:det/nfe:prod/nfe:xProd",
			"Natureza Operação":  ".//nfe:ide/nfe:natOp",
		},
		TextPatterns: map[string]string{
			FieldChassis:   `(?:CHASSI|CHAS|CH)[\s:;.-]*([A-HJ-NPR-Z0-9]{17})`,
			FieldPlate:     `(?:PLACA|PL)[\s:;.-]*([A-Z]{3}[0-9][A-Z0-9][0-9]{2})|(?:PLACA|PL)[\s:;.-]*([A-Z]{3}-?[0-9]{4})`,
			FieldRenavam:   `(?:RENAVAM|REN|RENAV)[\s:;.-]*([0-9]{9,11})`,
			FieldOdometer:  `(?:KM|QUILOMETRAGEM|HODOMETRO|HODÔMETRO)[\s:;.-]*([0-9]{1,7})`,
			FieldModelYear: `(?:ANO[\s/]*MODELO|ANO[\s/]?FAB[\s/]?MOD)[\s:;.-]*([0-9]{4})[\s/.-]+([0-9]{4})|ANO[\s:;.-]*([0-9]{4})[\s/.-]+([0-9]{4})`,
			FieldColor:     `(?:COR|COLOR)[\s:;.-]*([A-Za-zÀ-ú\s]+?)(?:[\s,.;]|$)`,
			FieldEngine:    `(?:MOTOR|MOT|N[º°\s]?\s*MOTOR)[\s:;.-]*([A-Z0-9]+)`,
			FieldFuel:      `(?:COMBUSTÍVEL|COMBUSTIVEL|COMB)[\s:;.-]*([A-Za-zÀ-ú\s/]+?)(?:[\s,.;]|$)`,
			FieldModel:     `(?:MODELO|MOD)[\s:;.-]*([A-Za-zÀ-ú0-9\s\.-]+?)(?:[\s,.;]|$)`,
			FieldPower:     `(?:POTÊNCIA|POTENCIA|POT)[\s:;.-]*([0-9]+(?:[,.][0-9]+)?)`,
		},
	}
}

// LoadRules reads a rules descriptor from a JSON file, falling back to the
// built-in defaults when the file is missing or malformed.
func LoadRules(path string, logger *zap.Logger) *Rules {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read extraction rules, using defaults",
			zap.String("path", path), zap.Error(err))
		return DefaultRules()
	}
	rules := DefaultRules()
	if err := json.Unmarshal(data, rules); err != nil {
		logger.Warn("Failed to parse extraction rules, using defaults",
			zap.String("path", path), zap.Error(err))
		return DefaultRules()
	}
	return rules
}

// groupSelector picks the extracted value out of a regexp match. The
// default takes the first non-empty capture group; fields with alternative
// sub-patterns override it.
type groupSelector func(c *CompiledRules, groups []string) string

// textRule is one entry of the free-text extraction table: pattern,
// group selector and optional validator, evaluated first-match-wins.
type textRule struct {
	pattern  *regexp.Regexp
	selector groupSelector
	validate func(c *CompiledRules, value string) bool
}

// CompiledRules holds the precompiled form of a rule set.
type CompiledRules struct {
	rules    *Rules
	chassis  *regexp.Regexp
	plateNew *regexp.Regexp
	plateOld *regexp.Regexp
	renavam  *regexp.Regexp
	text     map[string]textRule
}

// Compile precompiles every validator and free-text pattern of the rule set.
func (r *Rules) Compile() (*CompiledRules, error) {
	c := &CompiledRules{rules: r, text: make(map[string]textRule, len(r.TextPatterns))}

	var err error
	if c.chassis, err = regexp.Compile(r.Validators["chassi"]); err != nil {
		return nil, fmt.Errorf("invalid chassis validator: %w", err)
	}
	if c.plateNew, err = regexp.Compile(r.Validators["placa_mercosul"]); err != nil {
		return nil, fmt.Errorf("invalid mercosul plate validator: %w", err)
	}
	if c.plateOld, err = regexp.Compile(strings.ReplaceAll(r.Validators["placa_antiga"], "-", "")); err != nil {
		return nil, fmt.Errorf("invalid legacy plate validator: %w", err)
	}
	if c.renavam, err = regexp.Compile(r.Validators["renavam"]); err != nil {
		return nil, fmt.Errorf("invalid renavam validator: %w", err)
	}

	for field, pattern := range r.TextPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for %q: %w", field, err)
		}
		rule := textRule{pattern: re, selector: firstGroup}
		switch field {
		case FieldPlate:
			// two alternative sub-patterns (mercosul, legacy); the first
			// candidate that passes plate validation wins
			rule.selector = anyGroup
			rule.validate = func(c *CompiledRules, v string) bool { return c.ValidatePlate(v) }
		case FieldModelYear:
			// two capture-group layouts; the second year of the matched
			// pair is the model year
			rule.selector = secondOfPair
		}
		c.text[field] = rule
	}

	return c, nil
}

// MustCompile is like Compile but panics on error. Intended for the built-in
// default set, which is known to compile.
func MustCompile(r *Rules) *CompiledRules {
	c, err := r.Compile()
	if err != nil {
		panic(err)
	}
	return c
}

func firstGroup(_ *CompiledRules, groups []string) string {
	for _, g := range groups {
		if g != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

func anyGroup(c *CompiledRules, groups []string) string {
	for _, g := range groups {
		if g != "" {
			return strings.ToUpper(strings.TrimSpace(g))
		}
	}
	return ""
}

func secondOfPair(_ *CompiledRules, groups []string) string {
	if len(groups) >= 2 && groups[0] != "" && groups[1] != "" {
		return strings.TrimSpace(groups[1])
	}
	if len(groups) >= 4 && groups[2] != "" && groups[3] != "" {
		return strings.TrimSpace(groups[3])
	}
	return ""
}

// ExtractField runs the free-text rule for one vehicle attribute over the
// product description. It returns nil when no pattern matches or validation
// fails, never an error.
func (c *CompiledRules) ExtractField(field, text string) *string {
	if text == "" {
		return nil
	}
	rule, ok := c.text[field]
	if !ok {
		return nil
	}

	if rule.validate != nil {
		// validated fields may have several candidates in the same text;
		// the first one that validates wins
		for _, m := range rule.pattern.FindAllStringSubmatch(text, -1) {
			value := rule.selector(c, m[1:])
			if value != "" && rule.validate(c, value) {
				return &value
			}
		}
		return nil
	}

	m := rule.pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value := rule.selector(c, m[1:])
	if value == "" {
		return nil
	}
	return &value
}
