package fields

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
)

const (
	celPathMissing int64 = iota
	celPathNull
	celPathSet
)

var newCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)))
}

// CELResolver resolves dotted paths such as "billing.iban" inside nested
// map[string]any documents. Each path is compiled once into a CEL program
// that classifies it as missing, null or set.
type CELResolver struct {
	opts     Options
	env      *cel.Env
	programs sync.Map // path -> cel.Program
}

func NewCELResolver(opts Options) (*CELResolver, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("fields: cel env: %w", err)
	}
	return &CELResolver{opts: opts, env: env}, nil
}

// Compile prepares the programs for every field of specs ahead of the first
// evaluation.
func (r *CELResolver) Compile(specs ...nullability.Spec) error {
	for _, s := range specs {
		for _, path := range s.FieldNames() {
			if _, err := r.program(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *CELResolver) Resolve(record any, field string) (nullability.Observation, error) {
	m, ok := record.(map[string]any)
	if !ok {
		return nullability.Absent, nullability.NewFieldResolutionError(field, fmt.Sprintf("%T", record))
	}
	prg, err := r.program(field)
	if err != nil {
		return nullability.Absent, err
	}
	out, _, err := prg.Eval(map[string]any{"record": m})
	if err != nil {
		// the path runs through a value that is not an object
		return r.opts.missing(field, "object")
	}
	state, ok := out.Value().(int64)
	if !ok {
		return nullability.Absent, errors.New("fields: unexpected cel result for " + field)
	}
	switch state {
	case celPathMissing:
		return r.opts.missing(field, "object")
	case celPathNull:
		return nullability.Absent, nil
	default:
		return nullability.Present, nil
	}
}

func (r *CELResolver) program(path string) (cel.Program, error) {
	if cached, ok := r.programs.Load(path); ok {
		return cached.(cel.Program), nil
	}
	expr, err := pathExpr(path)
	if err != nil {
		return nil, err
	}
	ast, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("fields: compile %q: %w", path, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.IntType) {
		return nil, errors.New("fields: path expression output type mismatch")
	}
	prg, err := r.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("fields: program %q: %w", path, err)
	}
	actual, _ := r.programs.LoadOrStore(path, prg)
	return actual.(cel.Program), nil
}

// pathExpr builds
//
//	!("a" in record) ? 0 : record["a"] == null ? 1 : !("b" in record["a"]) ? 0 : ... : 2
func pathExpr(path string) (string, error) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	var b strings.Builder
	parent := "record"
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return "", &nullability.ConfigurationError{Reason: "invalid field path " + strconv.Quote(path)}
		}
		q := strconv.Quote(seg)
		access := parent + "[" + q + "]"
		fmt.Fprintf(&b, "!(%s in %s) ? %d : %s == null ? %d : ", q, parent, celPathMissing, access, celPathNull)
		parent = access
	}
	b.WriteString(strconv.FormatInt(celPathSet, 10))
	return b.String(), nil
}
