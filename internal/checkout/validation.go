package checkout

import (
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/go-playground/validator/v10"
)

// PaymentDetails is the card data typed into the payment step. It is validated and
// reduced to a models.PaymentSummary; the full number and CVV are never stored.
type PaymentDetails struct {
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
	CVV        string `json:"cvv" validate:"required,cvv"`
	CardName   string `json:"cardName" validate:"required"`
}

// String keeps card data out of logs and fmt output.
func (p PaymentDetails) String() string {
	return fmt.Sprintf("card ending %s", p.Last4())
}

// Last4 returns the last four digits of the card number.
func (p PaymentDetails) Last4() string {
	digits := digitsOnly(p.CardNumber)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Summary is the redacted form kept on the order.
func (p PaymentDetails) Summary() models.PaymentSummary {
	return models.PaymentSummary{Type: PaymentTypeCard, Last4: p.Last4(), CardName: p.CardName}
}

func (p PaymentDetails) normalize() PaymentDetails {
	return PaymentDetails{
		CardNumber: FormatCardNumber(p.CardNumber),
		ExpiryDate: FormatExpiry(p.ExpiryDate),
		CVV:        strings.TrimSpace(p.CVV),
		CardName:   strings.TrimSpace(p.CardName),
	}
}

// PaymentTypeCard is the only payment method the storefront captures.
const PaymentTypeCard = "credit_card"

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
	for tag, fn := range map[string]validator.Func{
		"phone":      validPhone,
		"cardnumber": validCardNumber,
		"cvv":        validCVV,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

func validPhone(fl validator.FieldLevel) bool {
	return len(digitsOnly(fl.Field().String())) == 10
}

func validCardNumber(fl validator.FieldLevel) bool {
	raw := strings.Join(strings.Fields(fl.Field().String()), "")
	return len(raw) == 16 && digitsOnly(raw) == raw
}

func validCVV(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	return len(raw) >= 3 && len(raw) <= 4 && digitsOnly(raw) == raw
}

// ValidateShipping normalizes the address and checks the required contact fields.
func ValidateShipping(addr types.ShippingAddress) (types.ShippingAddress, error) {
	addr = addr.Normalize()
	if details := fieldErrors(addr); len(details) > 0 {
		return addr, validationError(details)
	}
	addr.Phone = FormatPhone(addr.Phone)
	return addr, nil
}

// ValidatePayment normalizes the card data and runs the structural checks.
func ValidatePayment(p PaymentDetails) (PaymentDetails, error) {
	p = p.normalize()
	if details := fieldErrors(p); len(details) > 0 {
		return p, validationError(details)
	}
	return p, nil
}

// Submission is the full checkout form.
type Submission struct {
	Shipping types.ShippingAddress `json:"shippingAddress"`
	Payment  PaymentDetails        `json:"paymentMethod"`
	Notes    string                `json:"notes"`
}

// Validate checks both steps and reports every failing field at once.
func (s Submission) Validate() (Submission, error) {
	out := Submission{
		Shipping: s.Shipping.Normalize(),
		Payment:  s.Payment.normalize(),
		Notes:    strings.TrimSpace(s.Notes),
	}
	details := fieldErrors(out.Shipping)
	for field, msg := range fieldErrors(out.Payment) {
		details[field] = msg
	}
	if len(details) > 0 {
		return out, validationError(details)
	}
	out.Shipping.Phone = FormatPhone(out.Shipping.Phone)
	return out, nil
}

func fieldErrors(v any) map[string]string {
	details := map[string]string{}
	err := validate.Struct(v)
	if err == nil {
		return details
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		details["_"] = err.Error()
		return details
	}
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return details
}

func validationError(details map[string]string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid 10-digit phone number"
	case "cardnumber":
		return "must be 16 digits"
	case "cvv":
		return "must be 3 or 4 digits"
	}
	return "is invalid"
}
