package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxNameLen     = 100
)

const (
	msgInvalidEmail      = "Invalid email format"
	msgEmailRequired     = "Email is required"
	msgPasswordRequired  = "Password is required"
	msgPasswordTooShort  = "Password must be at least 8 characters"
	msgPasswordTooLong   = "Password must be less than 128 characters"
	msgPasswordStrength  = "Password must be at least 8 characters and less than 128 characters"
	msgInvalidName       = "Name must be between 1 and 100 characters"
	msgTokenRequired     = "Token is required"
	msgPasswordsRequired = "Current password and new password are required"
)

// Solo forma local@dominio.tld; no hay verificacion DNS.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegistrationInput es el payload de alta.
type RegistrationInput struct {
	Email    string  `validate:"authemail"`
	Password string  `validate:"required,min=8,max=128"`
	Name     *string `validate:"omitnil,authname"`
}

// LoginInput solo exige forma de email y presencia de contrasena.
type LoginInput struct {
	Email    string `validate:"authemail"`
	Password string `validate:"required"`
}

// CredentialValidator valida la forma de las credenciales sin hacer I/O.
type CredentialValidator struct {
	v *validator.Validate
}

func NewCredentialValidator() *CredentialValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "authemail", func(fl validator.FieldLevel) bool {
		return ValidateEmail(fl.Field().String())
	})
	mustRegister(v, "authname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return ValidateName(&name)
	})
	return &CredentialValidator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidateEmail comprueba que el email no este vacio y tenga forma local@dominio.tld.
func ValidateEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailShape.MatchString(email)
}

// ValidatePassword exige entre 8 y 128 caracteres inclusive.
func ValidatePassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= minPasswordLen && n <= maxPasswordLen
}

// ValidateName acepta ausencia; si hay nombre, recortado debe tener 1..100 caracteres.
func ValidateName(name *string) bool {
	if name == nil {
		return true
	}
	n := utf8.RuneCountInString(strings.TrimSpace(*name))
	return n >= 1 && n <= maxNameLen
}

// ValidateRegistration acumula todos los errores en lugar de cortar en el primero.
func (c *CredentialValidator) ValidateRegistration(in RegistrationInput) error {
	return c.validateStruct(in)
}

func (c *CredentialValidator) ValidateLogin(in LoginInput) error {
	return c.validateStruct(in)
}

// ValidateNewPassword aplica la politica de fuerza para reset y cambio de contrasena.
func (c *CredentialValidator) ValidateNewPassword(password string) error {
	if password == "" {
		return newValidationError(msgPasswordRequired)
	}
	if !ValidatePassword(password) {
		return newValidationError(msgPasswordStrength)
	}
	return nil
}

func (c *CredentialValidator) validateStruct(in any) error {
	err := c.v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return newValidationError(msgs...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Email":
		return msgInvalidEmail
	case "Password":
		switch fe.Tag() {
		case "required":
			return msgPasswordRequired
		case "min":
			return msgPasswordTooShort
		case "max":
			return msgPasswordTooLong
		}
	case "Name":
		return msgInvalidName
	}
	return fe.Error()
}
