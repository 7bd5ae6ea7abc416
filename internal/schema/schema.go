package schema

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/editor-api/internal/draft"
)

// ErrorMap maps dot-paths to human-readable messages. It is derived fresh on
// each validation run and never persisted.
type ErrorMap map[string]string

// Rule is one declarative constraint over a draft path. When, if set, gates
// the rule on the rest of the draft (e.g. price fields per finalidade).
type Rule struct {
	Path    string
	Label   string
	Tag     string
	Message string
	When    func(d draft.Draft) bool
}

var validate = validator.New()

// Validate runs the entity's rule table against the WHOLE draft and returns
// a path-keyed error map. It runs synchronously, exactly once per submission
// attempt; it never mutates the draft.
func Validate(entity draft.Entity, d draft.Draft) ErrorMap {
	rules := RulesFor(entity)
	errs := make(ErrorMap)
	for _, r := range rules {
		if r.When != nil && !r.When(d) {
			continue
		}
		val := draft.Get(d, r.Path)
		s, ok := val.(string)
		if !ok {
			// booleans and other non-string values carry no schema rules
			continue
		}
		if err := validate.Var(s, r.Tag); err != nil {
			errs[r.Path] = messageFor(r, err)
		}
	}
	return errs
}

func messageFor(r Rule, err error) string {
	if r.Message != "" {
		return r.Message
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "required":
			return r.Label + " é obrigatório."
		case "numeric":
			return r.Label + " deve ser um número válido."
		case "email":
			return "E-mail inválido."
		case "len":
			return r.Label + " tem tamanho inválido."
		case "oneof":
			return r.Label + " tem um valor não reconhecido."
		}
	}
	return r.Label + " é inválido."
}
