// Package fiscal models Brazilian fiscal-document fields (DANFE, DACTE,
// NFS-e) and validates their format.
package fiscal

// DocumentType identifies the kind of fiscal document.
type DocumentType string

const (
	DocDANFE   DocumentType = "DANFE"
	DocDACTE   DocumentType = "DACTE"
	DocNFSe    DocumentType = "NFS-e"
	DocUnknown DocumentType = "desconhecido"
)

// Fields holds the structured fields extracted from a fiscal document.
// Empty string means the field was not found. The JSON tags follow the
// extraction contract with the model, which answers in Portuguese keys.
type Fields struct {
	DocumentType   DocumentType `json:"tipo_documento"`
	AccessKey      string       `json:"chave_acesso"`
	IssuerTaxID    string       `json:"cnpj_emitente"`
	IssuerName     string       `json:"razao_social_emitente"`
	RecipientTaxID string       `json:"cnpj_destinatario"`
	RecipientName  string       `json:"razao_social_destinatario"`
	IssueDate      string       `json:"data_emissao"`
	TotalValue     string       `json:"valor_total"`

	// RawResponse carries the model output verbatim when it could not be
	// parsed as JSON. All other fields are empty in that case.
	RawResponse string `json:"raw_response,omitempty"`
}

// Report is the outcome of validating extracted fields. It is derived
// deterministically from Fields and never modified after ValidateAndScore.
type Report struct {
	IssuerTaxIDValid    bool     `json:"cnpj_emitente_valido"`
	RecipientTaxIDValid bool     `json:"cnpj_destinatario_valido"`
	AccessKeyValid      bool     `json:"chave_valida"`
	IssueDateValid      bool     `json:"data_emissao_valida"`
	TotalValueValid     bool     `json:"valor_total_valido"`
	SuspiciousFields    []string `json:"campos_suspeitos"`
	ConfidenceScore     float64  `json:"score_confianca"`
}
