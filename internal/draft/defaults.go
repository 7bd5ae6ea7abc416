package draft

// Default drafts are complete supersets of every path the validation schema
// and the section controllers address. Absent values are "" (or false for
// toggles), never a missing key, so every control reads a defined value.

func NewImovel() Draft {
	return Draft{
		"codigo":         "",
		"titulo":         "",
		"descricao":      "",
		"tipo":           "",
		"finalidade":     "",
		"corretorId":     "",
		"proprietarioId": "",
		"endereco": map[string]any{
			"cep":         "",
			"rua":         "",
			"numero":      "",
			"complemento": "",
			"andar":       "",
			"bairro":      "",
			"cidade":      "",
			"uf":          "",
			"latitude":    "",
			"longitude":   "",
		},
		"valores": map[string]any{
			"precoVenda":     "",
			"precoAluguel":   "",
			"precoTemporada": "",
			"condominio":     "",
			"iptu":           "",
		},
		"caracteristicas": map[string]any{
			"quartos":       "",
			"suites":        "",
			"banheiros":     "",
			"vagas":         "",
			"areaTotal":     "",
			"areaUtil":      "",
			"mobiliado":     false,
			"aceitaPermuta": false,
			"destaque":      false,
		},
		"observacoes": "",
	}
}

func NewCliente() Draft {
	return Draft{
		"nome":       "",
		"email":      "",
		"telefone":   "",
		"celular":    "",
		"cpf":        "",
		"perfil":     "",
		"corretorId": "",
		"endereco": map[string]any{
			"cep":         "",
			"rua":         "",
			"numero":      "",
			"complemento": "",
			"bairro":      "",
			"cidade":      "",
			"uf":          "",
		},
		"interesses": map[string]any{
			"finalidade":    "",
			"tipoImovel":    "",
			"faixaPrecoMin": "",
			"faixaPrecoMax": "",
			"quartosMin":    "",
			"vagasMin":      "",
			"cidade":        "",
			"bairros":       "",
		},
		"observacoes": "",
	}
}

func NewFor(entity Entity) Draft {
	if entity == Cliente {
		return NewCliente()
	}
	return NewImovel()
}
