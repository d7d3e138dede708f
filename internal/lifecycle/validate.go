package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

// maxBytes bounds the encoded length of a string, unlike max which counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	return err == nil && len(fl.Field().String()) <= n
}

type createInput struct {
	Name     string `field:"organization_name" validate:"min=3"`
	Email    string `field:"email" validate:"required,email"`
	Password string `field:"password" validate:"min=6,maxbytes=72"`
}

type nameInput struct {
	Name string `field:"organization_name" validate:"min=3"`
}

type emailInput struct {
	Email string `field:"email" validate:"required,email"`
}

// bcrypt rejects passwords longer than 72 bytes.
type passwordInput struct {
	Password string `field:"password" validate:"min=6,maxbytes=72"`
}

// check validates in and wraps failures in ErrInvalidRequest.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		case "maxbytes":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

// checkNameBytes rejects tenant names whose collection name would exceed what the
// backends store intact.
func checkNameBytes(name string, limit int) error {
	if err := validate.Var(name, "maxbytes="+strconv.Itoa(limit)); err != nil {
		return fmt.Errorf("%w: organization_name must be at most %d bytes", ErrInvalidRequest, limit)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
