package dataset

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError reports a structurally invalid Requirements value.
type ValidationError struct {
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "invalid requirements"
	}
	if len(e.Problems) == 0 {
		return "invalid requirements"
	}
	return "invalid requirements: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validate checks the structural shape of the requirements: at least one field, every
// field named, names unique, and a non-negative entry count.
func (r Requirements) Validate() error {
	err := validatorInstance().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Problems: []string{err.Error()}, Err: err}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems, Err: err}
}

func describe(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ns)
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", ns, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", ns, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", ns, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", ns, fe.Tag())
	}
}
