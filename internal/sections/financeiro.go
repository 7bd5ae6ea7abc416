package sections

import (
	"strconv"
	"strings"

	"github.com/yourorg/editor-api/internal/draft"
)

// FormatBRL renders a raw numeric string as currency for display. The draft
// value itself always stays the unformatted input; a value that does not
// parse is returned as typed.
func FormatBRL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(v*100 + 0.5)
	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := "R$ " + b.String() + "," + pad2(frac)
	if neg {
		return "-" + out
	}
	return out
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// PriceRelevant decides whether a price field participates in submission
// given the draft's finalidade. This is the section's own rendering rule:
// hidden fields remain in the draft, they are just not serialized.
func PriceRelevant(d draft.Draft, path string) bool {
	f := draft.GetString(d, "finalidade")
	switch path {
	case "valores.precoVenda":
		return f == "venda" || f == "ambos"
	case "valores.precoAluguel":
		return f == "aluguel" || f == "ambos"
	case "valores.precoTemporada":
		return f == "aluguel" || f == "ambos"
	default:
		return true
	}
}
