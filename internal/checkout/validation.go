package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// CustomerInfo is the shipping contact collected on the checkout form.
type CustomerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// PaymentInfo is the card data collected on the checkout form. It is only
// handed to the Gateway and never stored or logged.
type PaymentInfo struct {
	CardNumber     string `json:"cardNumber" validate:"required,numeric,min=12,max=19"`
	ExpiryDate     string `json:"expiryDate" validate:"required,expiry"`
	CVV            string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	CardholderName string `json:"cardholderName" validate:"required"`
}

// normalized strips the spaces and dashes shoppers type into card numbers.
func (p PaymentInfo) normalized() PaymentInfo {
	p.CardNumber = strings.NewReplacer(" ", "", "-", "").Replace(p.CardNumber)
	p.ExpiryDate = strings.TrimSpace(p.ExpiryDate)
	p.CVV = strings.TrimSpace(p.CVV)
	return p
}

// Last4 is the only part of the card number that may appear in logs.
func (p PaymentInfo) Last4() string {
	n := p.normalized().CardNumber
	if len(n) < 4 {
		return ""
	}
	return n[len(n)-4:]
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

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
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateDetails checks both forms and reports every failing field under
// "customer.<field>" or "payment.<field>".
func ValidateDetails(customer CustomerInfo, payment PaymentInfo) error {
	details := map[string]string{}
	collect(details, "customer", validate.Struct(customer))
	collect(details, "payment", validate.Struct(payment.normalized()))
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("checkout details invalid for %d field(s)", len(details))).WithDetails(details)
}

func collect(details map[string]string, prefix string, err error) {
	if err == nil {
		return
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		details[prefix] = err.Error()
		return
	}
	for _, fe := range errs {
		details[prefix+"."+fe.Field()] = fieldMessage(fe)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "numeric":
		return "must contain digits only"
	case "min":
		return fmt.Sprintf("must have at least %s digits", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s digits", fe.Param())
	case "expiry":
		return "must be MM/YY"
	}
	return "is invalid"
}
