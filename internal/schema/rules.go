package schema

import "github.com/yourorg/editor-api/internal/draft"

// Price fields are required only for the finalidades that expose them; the
// same relevance rule the financeiro section applies at render time.

func vendeSe(d draft.Draft) bool {
	f := draft.GetString(d, "finalidade")
	return f == "venda" || f == "ambos"
}

func alugaSe(d draft.Draft) bool {
	f := draft.GetString(d, "finalidade")
	return f == "aluguel" || f == "ambos"
}

var imovelRules = []Rule{
	{Path: "titulo", Label: "Título", Tag: "required"},
	{Path: "tipo", Label: "Tipo do imóvel", Tag: "required,oneof=casa apartamento terreno comercial sala"},
	{Path: "finalidade", Label: "Finalidade", Tag: "required,oneof=venda aluguel ambos"},
	{Path: "endereco.cep", Label: "CEP", Tag: "required,len=8,numeric", Message: "CEP deve conter 8 dígitos."},
	{Path: "endereco.rua", Label: "Rua", Tag: "required"},
	{Path: "endereco.numero", Label: "Número", Tag: "required"},
	{Path: "endereco.cidade", Label: "Cidade", Tag: "required"},
	{Path: "endereco.uf", Label: "UF", Tag: "required,len=2"},
	{Path: "endereco.andar", Label: "Andar", Tag: "omitempty,numeric"},
	{Path: "endereco.latitude", Label: "Latitude", Tag: "omitempty,numeric"},
	{Path: "endereco.longitude", Label: "Longitude", Tag: "omitempty,numeric"},
	{Path: "valores.precoVenda", Label: "Preço de venda", Tag: "required,numeric", When: vendeSe},
	{Path: "valores.precoAluguel", Label: "Preço de aluguel", Tag: "required,numeric", When: alugaSe},
	{Path: "valores.precoTemporada", Label: "Preço de temporada", Tag: "omitempty,numeric"},
	{Path: "valores.condominio", Label: "Condomínio", Tag: "omitempty,numeric"},
	{Path: "valores.iptu", Label: "IPTU", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.quartos", Label: "Quartos", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.suites", Label: "Suítes", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.banheiros", Label: "Banheiros", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.vagas", Label: "Vagas", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.areaTotal", Label: "Área total", Tag: "omitempty,numeric"},
	{Path: "caracteristicas.areaUtil", Label: "Área útil", Tag: "omitempty,numeric"},
}

var clienteRules = []Rule{
	{Path: "nome", Label: "Nome", Tag: "required"},
	{Path: "email", Label: "E-mail", Tag: "required,email"},
	{Path: "telefone", Label: "Telefone", Tag: "omitempty,min=8"},
	{Path: "celular", Label: "Celular", Tag: "omitempty,min=8"},
	{Path: "cpf", Label: "CPF", Tag: "omitempty,len=11,numeric", Message: "CPF deve conter 11 dígitos."},
	{Path: "perfil", Label: "Perfil", Tag: "required,oneof=CLIENTE PROPRIETARIO AMBOS"},
	{Path: "endereco.cep", Label: "CEP", Tag: "omitempty,len=8,numeric", Message: "CEP deve conter 8 dígitos."},
	{Path: "endereco.uf", Label: "UF", Tag: "omitempty,len=2"},
	{Path: "interesses.faixaPrecoMin", Label: "Faixa de preço mínima", Tag: "omitempty,numeric"},
	{Path: "interesses.faixaPrecoMax", Label: "Faixa de preço máxima", Tag: "omitempty,numeric"},
	{Path: "interesses.quartosMin", Label: "Quartos (mínimo)", Tag: "omitempty,numeric"},
	{Path: "interesses.vagasMin", Label: "Vagas (mínimo)", Tag: "omitempty,numeric"},
}

func RulesFor(entity draft.Entity) []Rule {
	if entity == draft.Cliente {
		return clienteRules
	}
	return imovelRules
}
