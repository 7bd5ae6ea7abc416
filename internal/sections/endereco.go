package sections

import (
	"strings"

	"github.com/yourorg/editor-api/internal/cep"
	"github.com/yourorg/editor-api/internal/draft"
)

// BackfillAddress copies looked-up address fields into the draft, but only
// where the draft is still empty. A value the user already typed is never
// overwritten. It reports whether any field actually changed, so the caller
// can treat the backfill like any other superseding edit.
func BackfillAddress(d draft.Draft, addr cep.Address) (draft.Draft, bool) {
	fill := map[string]string{
		"endereco.rua":    addr.Rua,
		"endereco.bairro": addr.Bairro,
		"endereco.cidade": addr.Cidade,
		"endereco.uf":     addr.UF,
	}
	out := d
	changed := false
	for path, v := range fill {
		if v == "" {
			continue
		}
		if draft.GetString(out, path) != "" {
			continue
		}
		out = draft.Set(out, path, v)
		changed = true
	}
	return out, changed
}

// AssembleQuery builds the free-text address string handed to the geocoder.
func AssembleQuery(d draft.Draft) string {
	parts := make([]string, 0, 6)
	rua := draft.GetString(d, "endereco.rua")
	numero := draft.GetString(d, "endereco.numero")
	if rua != "" && numero != "" {
		parts = append(parts, rua+", "+numero)
	} else if rua != "" {
		parts = append(parts, rua)
	}
	for _, p := range []string{"endereco.bairro", "endereco.cidade", "endereco.uf"} {
		if v := draft.GetString(d, p); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, "Brasil")
	return strings.Join(parts, ", ")
}
