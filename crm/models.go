package crm

import "encoding/json"

// Anexo is an attachment as the CRM reports it on an existing entity.
type Anexo struct {
	ID        int64  `json:"id"`
	Nome      string `json:"nome"`
	Categoria string `json:"categoria"`
	Tipo      string `json:"tipo"`
	MimeType  string `json:"mimeType"`
	URL       string `json:"url"`
}

// SubmitResult is the CRM's answer to a successful create/update.
type SubmitResult struct {
	ID  int64           `json:"id"`
	Raw json.RawMessage `json:"-"`
}
