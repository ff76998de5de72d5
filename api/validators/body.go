package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/crispyspin/crispyspin-backend/pkg/address"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

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
	_ = v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		_, err := address.Normalize(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("txhash", func(fl validator.FieldLevel) bool {
		_, err := address.NormalizeTxHash(fl.Field().String())
		return err == nil
	})
	return v
}

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

func DecodeJSONBody(r *http.Request, dest any) error {
	return decodeBody(r, dest, false)
}

// DecodeOptionalJSONBody accepts an empty body, leaving dest at its zero value.
func DecodeOptionalJSONBody(r *http.Request, dest any) error {
	return decodeBody(r, dest, true)
}

// ReadBody buffers the whole request body, refusing anything over
// MaxBodyBytes.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, bodyError(err)
	}
	return body, nil
}

func decodeBody(r *http.Request, dest any, allowEmpty bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if !allowEmpty {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
		}
		return ValidateStruct(dest)
	}
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer io.Copy(io.Discard, body)

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dest)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
	case err != nil:
		return bodyError(err)
	case decoder.More():
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must hold a single JSON object")
	}
	return ValidateStruct(dest)
}

func bodyError(err error) *pkgerrors.Error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		sizeErr   *http.MaxBytesError
	)
	reason := err.Error()
	switch {
	case errors.As(err, &syntaxErr):
		reason = fmt.Sprintf("malformed JSON at byte %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		reason = fmt.Sprintf("%s must be %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &sizeErr):
		reason = fmt.Sprintf("body exceeds %d bytes", sizeErr.Limit)
	case errors.Is(err, io.EOF):
		reason = "request body required"
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]string{"body": reason})
}

// ValidateStruct runs the struct's validate tags.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = validationMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "wallet":
		return "must be a 0x-prefixed 20 byte address"
	case "txhash":
		return "must be a 0x-prefixed 32 byte transaction hash"
	}
	return "is invalid"
}
