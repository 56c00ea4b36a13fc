package fields

import (
	"reflect"
	"strings"
	"sync"

	"github.com/jacksonlee411/nullguard/pkg/nullability"
)

// StructResolver resolves field names against Go structs. The name → field
// index table of each struct type is built once and cached; lookups after
// that do not walk the type again. Promoted fields of embedded structs
// resolve like declared ones.
type StructResolver struct {
	opts   Options
	tables sync.Map // reflect.Type -> *fieldTable
}

type fieldTable struct {
	typeName string
	index    map[string][]int
}

func NewStructResolver(opts Options) *StructResolver {
	if opts.TagName == "" {
		opts.TagName = "json"
	}
	return &StructResolver{opts: opts}
}

// Bind checks every spec's field names against t up front, so that a
// mismatch between a declared constraint and the record shape surfaces at
// startup rather than on the first request.
func (r *StructResolver) Bind(t reflect.Type, specs ...nullability.Spec) error {
	tbl, err := r.table(t)
	if err != nil {
		return err
	}
	if r.opts.MissingField == MissingFieldAbsent {
		return nil
	}
	for _, s := range specs {
		for _, name := range s.FieldNames() {
			if _, ok := tbl.index[name]; !ok {
				return nullability.NewFieldResolutionError(name, tbl.typeName)
			}
		}
	}
	return nil
}

func (r *StructResolver) Resolve(record any, field string) (nullability.Observation, error) {
	v := reflect.ValueOf(record)
	if !v.IsValid() {
		return nullability.Absent, nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nullability.Absent, nil
		}
		v = v.Elem()
	}
	tbl, err := r.table(v.Type())
	if err != nil {
		return nullability.Absent, nullability.NewFieldResolutionError(field, v.Type().String())
	}
	idx, ok := tbl.index[field]
	if !ok {
		return r.opts.missing(field, tbl.typeName)
	}
	fv, err := v.FieldByIndexErr(idx)
	if err != nil {
		// nil embedded pointer on the promotion path
		return nullability.Absent, nil
	}
	return observeValue(fv), nil
}

func (r *StructResolver) table(t reflect.Type) (*fieldTable, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := r.tables.Load(t); ok {
		return cached.(*fieldTable), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, nullability.NewFieldResolutionError("", t.String())
	}

	tbl := &fieldTable{typeName: t.String(), index: make(map[string][]int)}
	tagged := make(map[string][]int)
	for _, f := range reflect.VisibleFields(t) {
		tbl.index[f.Name] = f.Index
		if name, ok := tagName(f, r.opts.TagName); ok {
			tagged[name] = f.Index
		}
	}
	for name, idx := range tagged {
		if _, clash := tbl.index[name]; !clash {
			tbl.index[name] = idx
		}
	}

	actual, _ := r.tables.LoadOrStore(t, tbl)
	return actual.(*fieldTable), nil
}

func tagName(f reflect.StructField, tag string) (string, bool) {
	if tag == "-" {
		return "", false
	}
	raw, ok := f.Tag.Lookup(tag)
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(raw, ",")
	name = strings.TrimSpace(name)
	if name == "" || name == "-" {
		return "", false
	}
	return name, true
}
