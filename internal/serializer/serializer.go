package serializer

import (
	"strconv"
	"strings"

	"github.com/yourorg/editor-api/internal/cep"
	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/schema"
	"github.com/yourorg/editor-api/internal/sections"
	"github.com/yourorg/editor-api/internal/staging"
)

// ValidationError carries path-keyed failures raised at the serialization
// boundary (coercion failures, missing submission preconditions). It blocks
// submission exactly like a schema failure and never reaches transport.
type ValidationError struct {
	Fields schema.ErrorMap
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		parts = append(parts, path)
	}
	return "serialization blocked by invalid fields: " + strings.Join(parts, ", ")
}

// Part is one ordered binary member of the outbound multipart body.
type Part struct {
	FieldName  string
	Filename   string
	MimeType   string
	PayloadKey string
}

// Payload is the serialized form of a draft: one JSON metadata document plus
// the ordered binary parts. Serializing the same draft twice yields the same
// payload.
type Payload struct {
	Metadata map[string]any
	Parts    []Part
}

// partOrder fixes category emission order so part ordering is stable across
// runs; within a category, staging insertion order is preserved.
var partOrder = []staging.Category{staging.Fotos, staging.Videos, staging.Documentos}

// Serialize normalizes the draft into its wire form. All type coercion
// happens here and only here; the draft itself stays raw.
func Serialize(entity draft.Entity, d draft.Draft, atts map[staging.Category][]staging.Attachment) (Payload, error) {
	c := &coercer{errs: make(schema.ErrorMap)}

	var meta map[string]any
	if entity == draft.Cliente {
		meta = clienteMetadata(c, d)
	} else {
		meta = imovelMetadata(c, d)
	}
	if len(c.errs) > 0 {
		return Payload{}, &ValidationError{Fields: c.errs}
	}

	meta["anexos"] = attachmentMetadata(atts)

	var parts []Part
	for _, cat := range partOrder {
		for _, a := range atts[cat] {
			if a.PayloadKey == "" {
				continue
			}
			parts = append(parts, Part{
				FieldName:  string(cat),
				Filename:   a.Filename,
				MimeType:   a.MimeType,
				PayloadKey: a.PayloadKey,
			})
		}
	}
	return Payload{Metadata: meta, Parts: parts}, nil
}

func imovelMetadata(c *coercer, d draft.Draft) map[string]any {
	meta := map[string]any{
		"codigo":         draft.GetString(d, "codigo"),
		"titulo":         draft.GetString(d, "titulo"),
		"descricao":      draft.GetString(d, "descricao"),
		"tipo":           draft.GetString(d, "tipo"),
		"finalidade":     draft.GetString(d, "finalidade"),
		"corretorId":     c.fk(d, "corretorId"),
		"proprietarioId": c.fk(d, "proprietarioId"),
		"observacoes":    draft.GetString(d, "observacoes"),
	}

	normCEP, _ := cep.Normalize(draft.GetString(d, "endereco.cep"))
	meta["endereco"] = map[string]any{
		"cep":         normCEP,
		"rua":         draft.GetString(d, "endereco.rua"),
		"numero":      draft.GetString(d, "endereco.numero"),
		"complemento": draft.GetString(d, "endereco.complemento"),
		"andar":       c.numOptional(d, "endereco.andar"),
		"bairro":      draft.GetString(d, "endereco.bairro"),
		"cidade":      draft.GetString(d, "endereco.cidade"),
		"uf":          strings.ToUpper(draft.GetString(d, "endereco.uf")),
		"latitude":    c.coordinate(d, "endereco.latitude"),
		"longitude":   c.coordinate(d, "endereco.longitude"),
	}

	valores := map[string]any{
		"condominio": c.numOptional(d, "valores.condominio"),
		"iptu":       c.numOptional(d, "valores.iptu"),
	}
	// price fields the finalidade hides stay in the draft but are excluded
	// from the wire form by the section's relevance rule
	for _, p := range []string{"valores.precoVenda", "valores.precoAluguel", "valores.precoTemporada"} {
		if !sections.PriceRelevant(d, p) {
			continue
		}
		key := strings.TrimPrefix(p, "valores.")
		valores[key] = c.numMandatory(d, p)
	}
	meta["valores"] = valores

	meta["caracteristicas"] = map[string]any{
		"quartos":       c.numOptional(d, "caracteristicas.quartos"),
		"suites":        c.numOptional(d, "caracteristicas.suites"),
		"banheiros":     c.numOptional(d, "caracteristicas.banheiros"),
		"vagas":         c.numOptional(d, "caracteristicas.vagas"),
		"areaTotal":     c.numOptional(d, "caracteristicas.areaTotal"),
		"areaUtil":      c.numOptional(d, "caracteristicas.areaUtil"),
		"mobiliado":     draft.GetBool(d, "caracteristicas.mobiliado"),
		"aceitaPermuta": draft.GetBool(d, "caracteristicas.aceitaPermuta"),
		"destaque":      draft.GetBool(d, "caracteristicas.destaque"),
	}
	return meta
}

func clienteMetadata(c *coercer, d draft.Draft) map[string]any {
	meta := map[string]any{
		"nome":        draft.GetString(d, "nome"),
		"email":       draft.GetString(d, "email"),
		"telefone":    draft.GetString(d, "telefone"),
		"celular":     draft.GetString(d, "celular"),
		"cpf":         draft.GetString(d, "cpf"),
		"perfil":      draft.GetString(d, "perfil"),
		"corretorId":  c.fk(d, "corretorId"),
		"observacoes": draft.GetString(d, "observacoes"),
	}

	normCEP, _ := cep.Normalize(draft.GetString(d, "endereco.cep"))
	meta["endereco"] = map[string]any{
		"cep":         normCEP,
		"rua":         draft.GetString(d, "endereco.rua"),
		"numero":      draft.GetString(d, "endereco.numero"),
		"complemento": draft.GetString(d, "endereco.complemento"),
		"bairro":      draft.GetString(d, "endereco.bairro"),
		"cidade":      draft.GetString(d, "endereco.cidade"),
		"uf":          strings.ToUpper(draft.GetString(d, "endereco.uf")),
	}

	meta["interesses"] = map[string]any{
		"finalidade":    draft.GetString(d, "interesses.finalidade"),
		"tipoImovel":    draft.GetString(d, "interesses.tipoImovel"),
		"faixaPrecoMin": c.numOptional(d, "interesses.faixaPrecoMin"),
		"faixaPrecoMax": c.numOptional(d, "interesses.faixaPrecoMax"),
		"quartosMin":    c.numOptional(d, "interesses.quartosMin"),
		"vagasMin":      c.numOptional(d, "interesses.vagasMin"),
		"cidade":        draft.GetString(d, "interesses.cidade"),
		"bairros":       draft.GetString(d, "interesses.bairros"),
	}
	return meta
}

// attachmentMetadata strips local preview/payload references; only identity,
// name, category, subtype and mime type cross the wire.
func attachmentMetadata(atts map[staging.Category][]staging.Attachment) []map[string]any {
	out := make([]map[string]any, 0)
	for _, cat := range partOrder {
		for _, a := range atts[cat] {
			var id any
			if a.ID != 0 {
				id = a.ID
			}
			out = append(out, map[string]any{
				"id":        id,
				"nome":      a.Filename,
				"categoria": string(a.Category),
				"tipo":      a.Tipo,
				"mimeType":  a.MimeType,
			})
		}
	}
	return out
}

// coercer applies the boundary coercion rules, accumulating path-keyed
// failures instead of stopping at the first.
type coercer struct {
	errs schema.ErrorMap
}

// numOptional: empty reads as null; a non-empty value that does not parse is
// a validation error, never a silent null.
func (c *coercer) numOptional(d draft.Draft, path string) any {
	s := strings.TrimSpace(draft.GetString(d, path))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.errs[path] = "Valor numérico inválido."
		return nil
	}
	return v
}

// numMandatory: the business domain treats these as always-numeric; empty
// submits as 0, unparsable is still an error.
func (c *coercer) numMandatory(d draft.Draft, path string) any {
	s := strings.TrimSpace(draft.GetString(d, path))
	if s == "" {
		return float64(0)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.errs[path] = "Valor numérico inválido."
		return float64(0)
	}
	return v
}

// fk translates selector sentinels ("", "none") to null and everything else
// to a numeric identifier.
func (c *coercer) fk(d draft.Draft, path string) any {
	s := strings.TrimSpace(draft.GetString(d, path))
	if s == "" || s == "none" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		c.errs[path] = "Seleção inválida."
		return nil
	}
	return id
}

// coordinate is the submission precondition: a property may hold empty
// coordinates while being edited, but never submit them.
func (c *coercer) coordinate(d draft.Draft, path string) any {
	s := strings.TrimSpace(draft.GetString(d, path))
	if s == "" {
		c.errs[path] = "Localização é obrigatória: busque as coordenadas ou informe manualmente."
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.errs[path] = "Coordenada inválida."
		return nil
	}
	return v
}
