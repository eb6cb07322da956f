package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/reference"
	paymentdto "github.com/LavaJover/shvark-checkout-service/internal/usecase/dto/payment"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const amountPlaces = 2

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// numeric tags (gt, lt ...) see decimals as float64
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("txref", func(fl validator.FieldLevel) bool {
		return reference.IsValid(fl.Field().String())
	})

	// the gateway charges whole cents, so the stored amount must already be one
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(paymentdto.InitiateInput)
		if !in.Amount.Equal(in.Amount.Round(amountPlaces)) {
			sl.ReportError(in.Amount, "amount", "Amount", "cents", "")
		}
	}, paymentdto.InitiateInput{})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (uc *DefaultPaymentUsecase) validateStruct(s interface{}) error {
	err := uc.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(fields, "; "))
}
