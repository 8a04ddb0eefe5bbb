package fiscal

import (
	"strconv"
	"strings"
	"time"
)

// Digit-count checks only. Verification digits (CNPJ check digits, access
// key DV) are not computed; a well-formed but forged number passes.

const (
	taxIDDigits     = 14
	accessKeyDigits = 44
)

var dateLayouts = []string{"02/01/2006", "2006-01-02"}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTaxID reports whether the value contains exactly 14 digits after
// stripping punctuation (CNPJ format).
func ValidateTaxID(v string) bool {
	return len(onlyDigits(v)) == taxIDDigits
}

// ValidateAccessKey reports whether the value contains exactly 44 digits
// after stripping punctuation (NF-e access key format).
func ValidateAccessKey(v string) bool {
	return len(onlyDigits(v)) == accessKeyDigits
}

// ValidateDate reports whether the value parses as DD/MM/YYYY or YYYY-MM-DD.
func ValidateDate(v string) bool {
	if v == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// ValidateAmount reports whether the value parses as a Brazilian-formatted
// monetary amount: "." is a thousands separator, "," the decimal separator.
// Plain "1234.56" also passes since stripping its dot leaves an integer.
func ValidateAmount(v string) bool {
	if v == "" {
		return false
	}
	normalized := strings.ReplaceAll(v, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	_, err := strconv.ParseFloat(normalized, 64)
	return err == nil
}

// ValidateAndScore checks the five target fields, collects the failing ones
// as suspicious, and derives the confidence score: 1.0 with no suspects,
// 0.7 with one or two, 0.4 with three or more.
//
// The returned Fields is a copy of the input; no normalization is applied.
func ValidateAndScore(f Fields) (Fields, Report) {
	r := Report{
		IssuerTaxIDValid:    ValidateTaxID(f.IssuerTaxID),
		RecipientTaxIDValid: ValidateTaxID(f.RecipientTaxID),
		AccessKeyValid:      ValidateAccessKey(f.AccessKey),
		IssueDateValid:      ValidateDate(f.IssueDate),
		TotalValueValid:     ValidateAmount(f.TotalValue),
		SuspiciousFields:    []string{},
	}

	for _, check := range []struct {
		field string
		ok    bool
	}{
		{"cnpj_emitente", r.IssuerTaxIDValid},
		{"cnpj_destinatario", r.RecipientTaxIDValid},
		{"chave_acesso", r.AccessKeyValid},
		{"data_emissao", r.IssueDateValid},
		{"valor_total", r.TotalValueValid},
	} {
		if !check.ok {
			r.SuspiciousFields = append(r.SuspiciousFields, check.field)
		}
	}

	switch n := len(r.SuspiciousFields); {
	case n == 0:
		r.ConfidenceScore = 1.0
	case n <= 2:
		r.ConfidenceScore = 0.7
	default:
		r.ConfidenceScore = 0.4
	}

	return f, r
}
