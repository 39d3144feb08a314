package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

var validate = validator.New()

// validateStruct прогоняет validator-теги; ошибки полей сворачиваются
// в один ErrInvalidInput, до сети такой ввод не доходит
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
			return strings.ToLower(fe.Field()) + ": " + fe.Tag()
		})

		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, strings.Join(fields, "; "))
	}

	return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
}

func trimString(s string) string {
	return strings.TrimSpace(s)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}

	return &t
}
