package nfe

import (
	"strings"

	"go.uber.org/zap"
)

// Advisory messages attached to classified records for human review.
const (
	AdvisorySelfIssuedInbound = "Entrada emitida pela própria empresa, possível erro de emissão."
	AdvisoryInboundCFOPNoTie  = "Nota não envolve a empresa, mas CFOP é de entrada. Verificar!"
)

// Classifier assigns a movement direction to documents based on which side
// of the operation the company is on and the CFOP operation code.
type Classifier struct {
	companyIDs map[string]struct{}
	logger     *zap.Logger
}

// NewClassifier creates a classifier for one or more company CNPJ/CPF ids.
// Ids are normalized to digits before comparison.
func NewClassifier(companyIDs []string, logger *zap.Logger) *Classifier {
	ids := make(map[string]struct{}, len(companyIDs))
	for _, id := range companyIDs {
		if normalized := NormalizeID(id); normalized != "" {
			ids[normalized] = struct{}{}
		}
	}
	return &Classifier{companyIDs: ids, logger: logger}
}

// Classify returns the movement direction for a document plus an optional
// advisory. Rules, first match wins:
//
//  1. recipient is the company: Entrada (self-issued with an inbound CFOP
//     additionally gets an advisory);
//  2. issuer is the company: CFOP 5/6/7 means Saída, CFOP 1/2/3 means
//     Entrada with the self-issued advisory, anything else Indefinido;
//  3. otherwise Indefinido; an inbound CFOP on a document not involving the
//     company at all gets its own advisory.
func (c *Classifier) Classify(issuerID, recipientID, cfop string) (Direction, string) {
	issuer := NormalizeID(issuerID)
	recipient := NormalizeID(recipientID)

	_, issuerIsCompany := c.companyIDs[issuer]
	if issuer == "" {
		issuerIsCompany = false
	}
	_, recipientIsCompany := c.companyIDs[recipient]
	if recipient == "" {
		recipientIsCompany = false
	}

	prefix := cfopPrefix(cfop)

	if recipientIsCompany {
		if issuerIsCompany && isInboundCFOP(prefix) {
			return DirectionInbound, AdvisorySelfIssuedInbound
		}
		return DirectionInbound, ""
	}

	if issuerIsCompany {
		switch {
		case isOutboundCFOP(prefix):
			return DirectionOutbound, ""
		case isInboundCFOP(prefix):
			return DirectionInbound, AdvisorySelfIssuedInbound
		default:
			return DirectionUndetermined, ""
		}
	}

	if isInboundCFOP(prefix) {
		return DirectionUndetermined, AdvisoryInboundCFOPNoTie
	}
	return DirectionUndetermined, ""
}

// cfopPrefix normalizes an operation code to its first digit: non-digits are
// stripped, the code truncated to four digits, and the leading digit
// returned. An unparseable or absent code yields the empty string.
func cfopPrefix(cfop string) string {
	digits := NormalizeID(cfop)
	if len(digits) > 4 {
		digits = digits[:4]
	}
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return ""
	}
	return digits[:1]
}

func isInboundCFOP(prefix string) bool {
	return prefix == "1" || prefix == "2" || prefix == "3"
}

func isOutboundCFOP(prefix string) bool {
	return prefix == "5" || prefix == "6" || prefix == "7"
}
