package apperror

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// FaultKind enumerates the storage faults the normalizer knows how to render.
type FaultKind int

const (
	// FaultInvalidID is a lookup key that cannot be converted to the store's identifier type.
	FaultInvalidID FaultKind = iota + 1
	// FaultDuplicate is a uniqueness violation on a single field.
	FaultDuplicate
	// FaultValidation is a schema validation failure with one or more field errors.
	FaultValidation
)

func (k FaultKind) String() string {
	switch k {
	case FaultInvalidID:
		return "invalid_id"
	case FaultDuplicate:
		return "duplicate"
	case FaultValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// FieldError describes why a single field was rejected.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// Fault is the tagged error credential stores return instead of raw driver errors.
type Fault struct {
	Kind   FaultKind
	Field  string
	Value  string
	Fields []FieldError
	Err    error
}

// InvalidID reports that value is not a valid identifier for field.
func InvalidID(field, value string, err error) *Fault {
	return &Fault{
		Kind:  FaultInvalidID,
		Field: field,
		Value: value,
		Err:   faultCause("STORE_INVALID_ID", field, err),
	}
}

// Duplicate reports a uniqueness violation on field.
func Duplicate(field, value string, err error) *Fault {
	return &Fault{
		Kind:  FaultDuplicate,
		Field: field,
		Value: value,
		Err:   faultCause("STORE_DUPLICATE", field, err),
	}
}

// Invalid reports a schema validation failure.
func Invalid(fields ...FieldError) *Fault {
	return &Fault{
		Kind:   FaultValidation,
		Fields: fields,
		Err:    faultCause("STORE_VALIDATION", "", nil),
	}
}

// InvalidWithCause is Invalid with the underlying driver error attached.
func InvalidWithCause(err error, fields ...FieldError) *Fault {
	f := Invalid(fields...)
	f.Err = faultCause("STORE_VALIDATION", "", err)
	return f
}

func faultCause(code, field string, err error) error {
	builder := oops.Code(code)
	if field != "" {
		builder = builder.With("field", field)
	}
	if err == nil {
		return builder.Errorf("%s fault", strings.ToLower(code))
	}
	return builder.Wrap(err)
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultInvalidID:
		return fmt.Sprintf("invalid %s %q", f.Field, f.Value)
	case FaultDuplicate:
		return fmt.Sprintf("duplicate %s %q", f.Field, f.Value)
	case FaultValidation:
		return "validation failed: " + f.joinedFields()
	default:
		return "store fault"
	}
}

func (f *Fault) Unwrap() error { return f.Err }

// Message is the client-facing rendering of the fault.
func (f *Fault) Message() string {
	switch f.Kind {
	case FaultInvalidID:
		return fmt.Sprintf("Invalid value for %s: %s!", f.Field, f.Value)
	case FaultDuplicate:
		return fmt.Sprintf("Duplicate value for \"%s\": %s. Please use another value.", f.Field, f.Value)
	case FaultValidation:
		return fmt.Sprintf("Invalid input data: %s.", f.joinedFields())
	default:
		return genericMessage
	}
}

func (f *Fault) joinedFields() string {
	parts := make([]string, 0, len(f.Fields))
	for _, fe := range f.Fields {
		parts = append(parts, strings.TrimSuffix(fe.String(), "."))
	}
	return strings.Join(parts, ". ")
}
