package validators

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
)

const maxSlugLen = 200

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// ParseUUIDParam validates a path parameter holding a tool id.
func ParseUUIDParam(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if err := validate.Var(raw, "required,uuid"); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "must be a valid uuid").
			WithDetails(map[string]any{"field": field})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "must be a valid uuid").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// ParseSlugParam accepts the characters slug.Make can produce.
func ParseSlugParam(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	err := validate.Var(raw, "required,max=200,excludesall=/?#%")
	if err != nil || strings.ContainsAny(raw, " \t") || strings.Trim(raw, "-") == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid slug").
			WithDetails(map[string]any{"field": "slug", "max": maxSlugLen})
	}
	return raw, nil
}
