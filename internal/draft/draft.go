package draft

import (
	"strconv"
	"strings"
)

// Draft is the in-memory, editable representation of one entity before
// persistence. Scalar numeric inputs are held as raw strings (mirroring the
// text inputs that feed them) and coerced only at serialization time.
type Draft map[string]any

type Entity string

const (
	Imovel  Entity = "imovel"
	Cliente Entity = "cliente"
)

func ParseEntity(s string) (Entity, bool) {
	switch Entity(strings.ToLower(strings.TrimSpace(s))) {
	case Imovel:
		return Imovel, true
	case Cliente:
		return Cliente, true
	default:
		return "", false
	}
}

// splitPath splits on the FIRST dot only; two levels of nesting are all the
// editors ever use, so deeper dots stay inside the child key.
func splitPath(path string) (parent, child string, nested bool) {
	if i := strings.Index(path, "."); i >= 0 {
		return path[:i], path[i+1:], true
	}
	return path, "", false
}

// Get returns the value at a dot-path, or nil for unknown paths. Unknown
// paths are not an error; sections probe freely.
func Get(d Draft, path string) any {
	parent, child, nested := splitPath(path)
	if !nested {
		return d[parent]
	}
	sub, ok := d[parent].(map[string]any)
	if !ok {
		return nil
	}
	return sub[child]
}

// GetString returns the value at path as a string, with nil and non-string
// values reading as "".
func GetString(d Draft, path string) string {
	if s, ok := Get(d, path).(string); ok {
		return s
	}
	return ""
}

func GetBool(d Draft, path string) bool {
	b, _ := Get(d, path).(bool)
	return b
}

// Set writes value at a dot-path and returns a new draft. The top-level map
// and the touched subtree are copied; all other subtrees are shared, so
// change detection downstream can stay reference-based. A missing parent
// subtree is created.
func Set(d Draft, path string, value any) Draft {
	parent, child, nested := splitPath(path)
	out := make(Draft, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	if !nested {
		out[parent] = value
		return out
	}
	var sub map[string]any
	if prev, ok := d[parent].(map[string]any); ok {
		sub = make(map[string]any, len(prev)+1)
		for k, v := range prev {
			sub[k] = v
		}
	} else {
		sub = make(map[string]any, 1)
	}
	sub[child] = value
	out[parent] = sub
	return out
}

// Merge applies a path-keyed change set in one pass.
func Merge(d Draft, changes map[string]any) Draft {
	out := d
	for path, v := range changes {
		out = Set(out, path, v)
	}
	return out
}

// CoerceIncoming translates a value arriving from the persistence API (JSON
// decoded, so numbers are float64 and absent fields are nil) into the raw
// form the draft holds: numbers become strings, nil becomes "". Booleans
// pass through. This is the single input-boundary translation; nothing
// deeper in the draft re-interprets values.
func CoerceIncoming(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return t
	case string:
		return t
	default:
		return v
	}
}

// Overlay merges an incoming entity document (up to two levels deep) over a
// defaults draft, coercing scalars on the way in. Keys the defaults do not
// know are kept as-is; keys the document does not carry keep their default,
// so the result is always a complete superset of the schema's paths.
func Overlay(base Draft, doc map[string]any) Draft {
	out := base
	for k, v := range doc {
		if sub, ok := v.(map[string]any); ok {
			for ck, cv := range sub {
				out = Set(out, k+"."+ck, CoerceIncoming(cv))
			}
			continue
		}
		out = Set(out, k, CoerceIncoming(v))
	}
	return out
}
