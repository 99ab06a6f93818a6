package vault

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/orris-inc/paybridge/internal/domain/shared"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

const hintLength = 4

// Credential field names as stored inside the sealed map.
const (
	FieldAccessToken    = "access_token"
	FieldPublicKey      = "public_key"
	FieldSecretKey      = "secret_key"
	FieldPublishableKey = "publishable_key"
)

type mercadoPagoCredentials struct {
	AccessToken string `validate:"required" field:"access_token"`
	PublicKey   string `field:"public_key"`
}

type stripeCredentials struct {
	SecretKey      string `validate:"required,startswith=sk_|startswith=rk_" field:"secret_key"`
	PublishableKey string `field:"publishable_key"`
}

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
}

// ValidationResult lists the required fields absent or malformed in a credential map.
type ValidationResult struct {
	Valid         bool
	MissingFields []string
}

// Validate checks the gateway's required credential fields.
func Validate(gateway shared.Gateway, plain map[string]string) ValidationResult {
	var target interface{}
	switch gateway {
	case shared.GatewayMercadoPago:
		target = &mercadoPagoCredentials{
			AccessToken: strings.TrimSpace(plain[FieldAccessToken]),
			PublicKey:   plain[FieldPublicKey],
		}
	case shared.GatewayStripe:
		target = &stripeCredentials{
			SecretKey:      strings.TrimSpace(plain[FieldSecretKey]),
			PublishableKey: plain[FieldPublishableKey],
		}
	default:
		return ValidationResult{Valid: false, MissingFields: []string{"gateway"}}
	}

	err := validate.Struct(target)
	if err == nil {
		return ValidationResult{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationResult{Valid: false}
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	sort.Strings(missing)
	return ValidationResult{Valid: false, MissingFields: missing}
}

// PrimaryField returns the gateway's most security-relevant credential field.
func PrimaryField(gateway shared.Gateway) string {
	if gateway == shared.GatewayStripe {
		return FieldSecretKey
	}
	return FieldAccessToken
}

// Hint returns the last characters of the primary secret, never the secret.
func Hint(gateway shared.Gateway, plain map[string]string) string {
	return utils.LastN(plain[PrimaryField(gateway)], hintLength)
}
