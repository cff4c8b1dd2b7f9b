// Package services contains the server-side business logic: identity,
// the relationship graph and the aggregation engine.
package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and reports failures as
// common.ErrorInvalidInput naming the offending fields.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return fmt.Errorf("%w: %s", common.ErrorInvalidInput, strings.Join(fields, ", "))
}

// storeErr passes domain errors through and turns anything else coming out
// of a repository into common.ErrorStoreUnavailable.
func storeErr(err error) error {
	for _, known := range []error{
		common.ErrorInvalidInput,
		common.ErrorConflict,
		common.ErrorNotFound,
		common.ErrorUnauthorized,
		common.ErrorInvalidRole,
		common.ErrorStoreUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return common.StoreError(err)
}
