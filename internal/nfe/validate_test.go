package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChassis(t *testing.T) {
	rules := MustCompile(DefaultRules())

	tests := []struct {
		name    string
		chassis string
		want    bool
	}{
		{"valid chassis", "98M50AA00L4A92818", true},
		{"valid lowercase", "98m50aa00l4a92818", true},
		{"valid with punctuation stripped", "98M50-AA00L4A92818", true},
		{"contains I", "98I50AA00L4A92818", false},
		{"contains O", "98O50AA00L4A92818", false},
		{"contains Q", "98Q50AA00L4A92818", false},
		{"too short", "98M50AA00L4A9281", false},
		{"too long", "98M50AA00L4A928181", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.ValidateChassis(tt.chassis))
		})
	}
}

func TestValidatePlate(t *testing.T) {
	rules := MustCompile(DefaultRules())

	tests := []struct {
		name  string
		plate string
		want  bool
	}{
		{"mercosul", "ABC1D23", true},
		{"mercosul lowercase", "abc1d23", true},
		{"legacy", "ABC1234", true},
		{"legacy with hyphen", "ABC-1234", true},
		{"mercosul with hyphen", "ABC-1D23", true},
		{"too short", "AB1234", false},
		{"letters only", "ABCDEFG", false},
		{"digits only", "1234567", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.ValidatePlate(tt.plate))
		})
	}
}

func TestValidateRenavam(t *testing.T) {
	rules := MustCompile(DefaultRules())

	assert.True(t, rules.ValidateRenavam("123456789"))
	assert.True(t, rules.ValidateRenavam("12345678901"))
	assert.True(t, rules.ValidateRenavam("123.456.789-01"))
	assert.False(t, rules.ValidateRenavam("12345678"))
	assert.False(t, rules.ValidateRenavam("123456789012"))
	assert.False(t, rules.ValidateRenavam(""))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "12345678000190", NormalizeID("12.345.678/0001-90"))
	assert.Equal(t, "12345678901", NormalizeID("123.456.789-01"))
	assert.Equal(t, "", NormalizeID("abc"))
}

func TestCleanKey(t *testing.T) {
	assert.Equal(t, "98M50AA00L4A92818", CleanKey("98m50aa00l4a92818"))
	assert.Equal(t, "ABC1234", CleanKey("abc-1234"))
	assert.Equal(t, "", CleanKey("--- ---"))
}
