package nfe

import (
	"regexp"
	"strings"
)

var (
	nonWord  = regexp.MustCompile(`\W`)
	nonDigit = regexp.MustCompile(`\D`)
)

// ValidateChassis reports whether the value is a well-formed 17-character
// chassis (VIN). Letters I, O and Q are not part of the VIN alphabet.
func (c *CompiledRules) ValidateChassis(chassis string) bool {
	if chassis == "" {
		return false
	}
	cleaned := strings.ToUpper(nonWord.ReplaceAllString(chassis, ""))
	return c.chassis.MatchString(cleaned)
}

// ValidatePlate reports whether the value matches the mercosul (AAA0A00) or
// legacy (AAA0000) plate format, with or without hyphen.
func (c *CompiledRules) ValidatePlate(plate string) bool {
	if plate == "" {
		return false
	}
	cleaned := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(plate)), "-", "")
	return c.plateNew.MatchString(cleaned) || c.plateOld.MatchString(cleaned)
}

// ValidateRenavam reports whether the value is a 9 to 11 digit registration
// number after stripping non-digits.
func (c *CompiledRules) ValidateRenavam(renavam string) bool {
	if renavam == "" {
		return false
	}
	cleaned := nonDigit.ReplaceAllString(strings.TrimSpace(renavam), "")
	return c.renavam.MatchString(cleaned)
}

// NormalizeID strips everything but digits from a CNPJ/CPF.
func NormalizeID(id string) string {
	return nonDigit.ReplaceAllString(id, "")
}

// CleanKey uppercases a chassis or plate and strips non-alphanumeric
// characters, producing the normalized vehicle identity key.
func CleanKey(value string) string {
	return strings.ToUpper(nonWord.ReplaceAllString(value, ""))
}
