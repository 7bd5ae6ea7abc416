package sections

import (
	"strings"

	"github.com/yourorg/editor-api/internal/draft"
	"github.com/yourorg/editor-api/internal/schema"
)

// Section describes one logical editor tab and the draft paths it owns.
// Sections never touch the draft directly; all mutation flows through
// draft.Set in the session layer, and a section's job is slicing the draft
// and the error map for its tab.
type Section struct {
	Name  string
	Paths []string // exact paths or subtree prefixes ("endereco")
}

var imovelSections = []Section{
	{Name: "identificacao", Paths: []string{"codigo", "titulo", "descricao", "tipo", "finalidade", "corretorId", "proprietarioId"}},
	{Name: "endereco", Paths: []string{"endereco"}},
	{Name: "valores", Paths: []string{"valores"}},
	{Name: "caracteristicas", Paths: []string{"caracteristicas"}},
	{Name: "midia", Paths: nil},
	{Name: "documentos", Paths: nil},
	{Name: "observacoes", Paths: []string{"observacoes"}},
}

var clienteSections = []Section{
	{Name: "identificacao", Paths: []string{"nome", "email", "telefone", "celular", "cpf", "perfil", "corretorId"}},
	{Name: "endereco", Paths: []string{"endereco"}},
	{Name: "interesses", Paths: []string{"interesses"}},
	{Name: "documentos", Paths: nil},
	{Name: "observacoes", Paths: []string{"observacoes"}},
}

func For(entity draft.Entity) []Section {
	if entity == draft.Cliente {
		return clienteSections
	}
	return imovelSections
}

func (s Section) owns(path string) bool {
	for _, p := range s.Paths {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}

// Owning resolves the section a dot-path belongs to. Unknown paths resolve
// to no section; that is not an error, path addressing stays permissive.
func Owning(entity draft.Entity, path string) (Section, bool) {
	for _, s := range For(entity) {
		if s.owns(path) {
			return s, true
		}
	}
	return Section{}, false
}

// SliceErrors filters a validation error map down to one section's paths.
func SliceErrors(s Section, errs schema.ErrorMap) schema.ErrorMap {
	out := make(schema.ErrorMap)
	for path, msg := range errs {
		if s.owns(path) {
			out[path] = msg
		}
	}
	return out
}

// TabsWithErrors names every tab holding at least one error, including tabs
// the user has not visited, so the UI can flag them.
func TabsWithErrors(entity draft.Entity, errs schema.ErrorMap) []string {
	var tabs []string
	for _, s := range For(entity) {
		if len(SliceErrors(s, errs)) > 0 {
			tabs = append(tabs, s.Name)
		}
	}
	return tabs
}
