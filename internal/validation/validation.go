// Package validation checks form input before any API call is made.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"ecoquest/internal/models"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
	answerTag   = "answer"
	taskTypeTag = "tasktype"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(answerTag, answerValidation)
	_ = validate.RegisterValidation(taskTypeTag, taskTypeValidation)

	registerCustomValidationsTranslations(notBlankTag, answerTag, taskTypeTag)
}

// registerCustomValidationsTranslations registers messages for the custom tags.
// The default translation is already registered, so a noop register func is passed.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case answerTag:
		return fe.Field() + " must be A, B or C"
	case taskTypeTag:
		return fe.Field() + " is not a known task type"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func answerValidation(fl validator.FieldLevel) bool {
	return models.IsValidAnswer(fl.Field().String())
}

func taskTypeValidation(fl validator.FieldLevel) bool {
	return models.TaskType(fl.Field().String()).Known()
}

// Struct validates v against its `validate` tags and returns a *ValidationError
// listing every failing field, or nil.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Message: "Please correct the highlighted fields."}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   fieldPath(fe),
			Message: fe.Translate(translator),
		})
	}
	return verr
}

// fieldPath drops the struct name from the namespace: "CreateQuizRequest.questions[0].option_a" -> "questions[0].option_a"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
