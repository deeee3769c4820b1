package service

import (
	stderrors "errors"
	"reflect"
	"strings"
	"time"

	creditErrors "credit-service/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewCreditService, NewAdminService, NewWebhookService)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so clients see the field they sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		return creditErrors.InvalidArgument(verrs[0].Field(), verrs[0].Tag())
	}
	return creditErrors.InvalidArgument("request", err.Error())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
