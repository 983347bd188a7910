package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	company := "12345678000190"
	other := "98765432000110"
	third := "11122233000144"

	classifier := NewClassifier([]string{company}, zap.NewNop())

	tests := []struct {
		name          string
		issuer        string
		recipient     string
		cfop          string
		wantDirection Direction
		wantAdvisory  string
	}{
		{
			name:          "recipient is company dominates even when self issued with outbound cfop",
			issuer:        company,
			recipient:     company,
			cfop:          "5102",
			wantDirection: DirectionInbound,
		},
		{
			name:          "issuer is company with outbound cfop",
			issuer:        company,
			recipient:     other,
			cfop:          "5102",
			wantDirection: DirectionOutbound,
		},
		{
			name:          "issuer is company with inbound cfop",
			issuer:        company,
			recipient:     other,
			cfop:          "1102",
			wantDirection: DirectionInbound,
			wantAdvisory:  AdvisorySelfIssuedInbound,
		},
		{
			name:          "company not involved with inbound cfop",
			issuer:        other,
			recipient:     third,
			cfop:          "1102",
			wantDirection: DirectionUndetermined,
			wantAdvisory:  AdvisoryInboundCFOPNoTie,
		},
		{
			name:          "company not involved with outbound cfop",
			issuer:        other,
			recipient:     third,
			cfop:          "5102",
			wantDirection: DirectionUndetermined,
		},
		{
			name:          "self issued to company with inbound cfop gets advisory",
			issuer:        company,
			recipient:     company,
			cfop:          "1102",
			wantDirection: DirectionInbound,
			wantAdvisory:  AdvisorySelfIssuedInbound,
		},
		{
			name:          "issuer is company with unknown cfop",
			issuer:        company,
			recipient:     other,
			cfop:          "4949",
			wantDirection: DirectionUndetermined,
		},
		{
			name:          "empty cfop falls to undetermined without advisory",
			issuer:        other,
			recipient:     third,
			cfop:          "",
			wantDirection: DirectionUndetermined,
		},
		{
			name:          "formatted ids are normalized before comparison",
			issuer:        "12.345.678/0001-90",
			recipient:     other,
			cfop:          "6102",
			wantDirection: DirectionOutbound,
		},
		{
			name:          "cfop longer than four digits is truncated",
			issuer:        company,
			recipient:     other,
			cfop:          "510245",
			wantDirection: DirectionOutbound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direction, advisory := classifier.Classify(tt.issuer, tt.recipient, tt.cfop)
			assert.Equal(t, tt.wantDirection, direction)
			assert.Equal(t, tt.wantAdvisory, advisory)
		})
	}
}

func TestClassifyMultipleCompanyIDs(t *testing.T) {
	classifier := NewClassifier([]string{"12345678000190", "12345678000271"}, zap.NewNop())

	direction, _ := classifier.Classify("98765432000110", "12345678000271", "5102")
	assert.Equal(t, DirectionInbound, direction)

	direction, _ = classifier.Classify("12345678000190", "98765432000110", "5102")
	assert.Equal(t, DirectionOutbound, direction)
}

func TestCFOPPrefix(t *testing.T) {
	assert.Equal(t, "5", cfopPrefix("5102"))
	assert.Equal(t, "5", cfopPrefix("5.102"))
	assert.Equal(t, "1", cfopPrefix("1102/90"))
	assert.Equal(t, "", cfopPrefix(""))
	assert.Equal(t, "", cfopPrefix("abc"))
}
