package fields

import (
	"fmt"

	"github.com/jacksonlee411/nullguard/pkg/nullability"
)

// MapResolver resolves field names as keys of a map[string]any, typically a
// decoded JSON object. A key holding null is Absent; a key that is not there
// at all follows Options.MissingField.
type MapResolver struct {
	opts Options
}

func NewMapResolver(opts Options) *MapResolver {
	return &MapResolver{opts: opts}
}

func (r *MapResolver) Resolve(record any, field string) (nullability.Observation, error) {
	m, ok := record.(map[string]any)
	if !ok {
		return nullability.Absent, nullability.NewFieldResolutionError(field, fmt.Sprintf("%T", record))
	}
	v, found := m[field]
	if !found {
		return r.opts.missing(field, "object")
	}
	return Observe(v), nil
}
