package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	d := NewImovel()

	cases := []struct {
		path  string
		value any
	}{
		{"titulo", "Casa na praia"},
		{"endereco.rua", "Rua das Flores"},
		{"endereco.cep", "01310100"},
		{"valores.precoVenda", "850000"},
		{"caracteristicas.mobiliado", true},
	}
	for _, tc := range cases {
		next := Set(d, tc.path, tc.value)
		assert.Equal(t, tc.value, Get(next, tc.path), "path %s", tc.path)
	}
}

func TestSetDoesNotMutateOriginal(t *testing.T) {
	d := NewImovel()
	next := Set(d, "endereco.rua", "Av. Paulista")

	assert.Equal(t, "", Get(d, "endereco.rua"))
	assert.Equal(t, "Av. Paulista", Get(next, "endereco.rua"))
}

func TestSetSharesUntouchedSubtrees(t *testing.T) {
	d := NewImovel()
	next := Set(d, "endereco.rua", "Av. Paulista")

	// untouched subtree keeps the same reference: a write through the old
	// draft is visible through the new one
	orig := d["valores"].(map[string]any)
	kept := next["valores"].(map[string]any)
	orig["precoVenda"] = "1"
	assert.Equal(t, "1", kept["precoVenda"])

	origEnd := d["endereco"].(map[string]any)
	newEnd := next["endereco"].(map[string]any)
	origEnd["cidade"] = "X"
	assert.NotEqual(t, "X", newEnd["cidade"])
}

func TestSetCreatesMissingParent(t *testing.T) {
	d := Draft{}
	next := Set(d, "interesses.faixaPrecoMin", "100000")
	assert.Equal(t, "100000", Get(next, "interesses.faixaPrecoMin"))
}

func TestSetLeavesOtherPathsUnchanged(t *testing.T) {
	d := NewCliente()
	d = Set(d, "nome", "Maria")
	d = Set(d, "interesses.faixaPrecoMin", "100000")
	next := Set(d, "interesses.faixaPrecoMax", "500000")

	assert.Equal(t, "Maria", Get(next, "nome"))
	assert.Equal(t, "100000", Get(next, "interesses.faixaPrecoMin"))
	assert.Equal(t, "500000", Get(next, "interesses.faixaPrecoMax"))
}

func TestGetUnknownPathIsNil(t *testing.T) {
	d := NewCliente()
	assert.Nil(t, Get(d, "nao.existe"))
	assert.Nil(t, Get(d, "naoExiste"))
	assert.Equal(t, "", GetString(d, "nao.existe"))
}

func TestDeepPathSplitsOnFirstDot(t *testing.T) {
	d := Draft{}
	next := Set(d, "a.b.c", "v")
	sub, ok := next["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", sub["b.c"])
	assert.Equal(t, "v", Get(next, "a.b.c"))
}

func TestCoerceIncoming(t *testing.T) {
	assert.Equal(t, "", CoerceIncoming(nil))
	assert.Equal(t, "850000", CoerceIncoming(float64(850000)))
	assert.Equal(t, "12.5", CoerceIncoming(12.5))
	assert.Equal(t, true, CoerceIncoming(true))
	assert.Equal(t, "abc", CoerceIncoming("abc"))
}

func TestOverlayKeepsDefaultsAndCoerces(t *testing.T) {
	doc := map[string]any{
		"titulo": "Cobertura",
		"valores": map[string]any{
			"precoVenda": float64(1200000),
		},
		"endereco": map[string]any{
			"latitude": -23.55,
		},
	}
	d := Overlay(NewImovel(), doc)

	assert.Equal(t, "Cobertura", Get(d, "titulo"))
	assert.Equal(t, "1200000", Get(d, "valores.precoVenda"))
	assert.Equal(t, "-23.55", Get(d, "endereco.latitude"))
	// untouched paths keep defined defaults
	assert.Equal(t, "", Get(d, "valores.precoAluguel"))
	assert.Equal(t, "", Get(d, "endereco.rua"))
}

func TestDefaultsAreCompleteSupersets(t *testing.T) {
	im := NewImovel()
	for _, p := range []string{
		"titulo", "tipo", "finalidade", "corretorId",
		"endereco.cep", "endereco.latitude", "endereco.longitude",
		"valores.precoVenda", "caracteristicas.quartos", "observacoes",
	} {
		assert.NotNil(t, hasPath(im, p), "imovel missing %s", p)
	}
	cl := NewCliente()
	for _, p := range []string{
		"nome", "email", "perfil", "interesses.faixaPrecoMin", "interesses.faixaPrecoMax",
	} {
		assert.NotNil(t, hasPath(cl, p), "cliente missing %s", p)
	}
}

func hasPath(d Draft, path string) any {
	parent, child, nested := splitPath(path)
	if !nested {
		v, ok := d[parent]
		if !ok {
			return nil
		}
		return v
	}
	sub, ok := d[parent].(map[string]any)
	if !ok {
		return nil
	}
	v, ok := sub[child]
	if !ok {
		return nil
	}
	return v
}
