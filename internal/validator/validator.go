package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// Validator combines struct-tag validation with card business rules. All
// validation runs client-side before any network call.
type Validator struct {
	structValidator *validator.Validate
	cardValidator   *CardValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		cardValidator:   NewCardValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation: struct tags first, then any
// card-content business rules the value carries.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		return ToValidationErrors(err)
	}

	switch val := s.(type) {
	case *models.CardCreate:
		if errs := v.cardValidator.ValidateCreate(val); len(errs) > 0 {
			return errs
		}
	case *models.Card:
		if errs := v.cardValidator.ValidateCard(val); len(errs) > 0 {
			return errs
		}
	}

	return nil
}

// Card returns the card content validator
func (v *Validator) Card() *CardValidator {
	return v.cardValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("qtype", validateQType)
	validate.RegisterValidation("visibility", validateVisibility)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQType(fl validator.FieldLevel) bool {
	return models.QType(fl.Field().String()).Valid()
}

func validateVisibility(fl validator.FieldLevel) bool {
	return models.DeckVisibility(fl.Field().String()).Valid()
}
