package roster

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed employee.cue
var employeeSchemaSource string

// ValidationError reports the first field that does not satisfy #Employee.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid employee: %s", e.Message)
	}
	return fmt.Sprintf("invalid employee: %s: %s", e.Field, e.Message)
}

// cue.Context is not safe for concurrent use.
var schema struct {
	sync.Mutex
	once     sync.Once
	employee cue.Value
	err      error
}

func employeeSchema() (cue.Value, error) {
	schema.once.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(employeeSchemaSource, cue.Filename("employee.cue"))
		if err := v.Err(); err != nil {
			schema.err = fmt.Errorf("compile employee schema: %w", err)
			return
		}
		schema.employee = v.LookupPath(cue.ParsePath("#Employee"))
		if !schema.employee.Exists() {
			schema.err = fmt.Errorf("employee schema: #Employee not defined")
		}
	})
	return schema.employee, schema.err
}

// Validate checks e against the #Employee schema.
func (e Employee) Validate() error {
	def, err := employeeSchema()
	if err != nil {
		return err
	}

	schema.Lock()
	defer schema.Unlock()

	v := def.Context().Encode(e)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode employee: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	var field []string
	for _, sel := range first.Path() {
		if strings.HasPrefix(sel, "#") {
			continue
		}
		field = append(field, sel)
	}
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(field, "."),
		Message: fmt.Sprintf(format, args...),
	}
}
