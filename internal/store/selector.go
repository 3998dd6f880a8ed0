package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"docarchive/internal/model"
)

// Op is a selector comparison operator.
type Op string

const (
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpIn     Op = "$in"
	OpNin    Op = "$nin"
	OpExists Op = "$exists"
)

// Condition is one parsed clause of a selector. Values hold the normalized
// comparison operands; Exists is set for OpExists.
type Condition struct {
	Field  string
	Op     Op
	Values []any
	Exists bool
}

// ParseSelector validates sel and flattens it into conditions sorted by field
// name. All conditions must hold for a document to match; an empty selector
// yields no conditions and matches everything.
func ParseSelector(sel model.Selector) ([]Condition, error) {
	fields := make([]string, 0, len(sel))
	for field := range sel {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conds := make([]Condition, 0, len(fields))
	for _, field := range fields {
		if err := validateField(field); err != nil {
			return nil, err
		}

		raw := sel[field]
		ops, isOps, err := operatorMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", model.ErrInvalidSelector, field, err)
		}
		if !isOps {
			v, err := Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", model.ErrInvalidSelector, field, err)
			}
			conds = append(conds, Condition{Field: field, Op: OpEq, Values: []any{v}})
			continue
		}

		names := make([]string, 0, len(ops))
		for name := range ops {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cond, err := parseOperator(field, Op(name), ops[name])
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
	}

	return conds, nil
}

// ValidateSelector reports whether sel parses.
func ValidateSelector(sel model.Selector) error {
	_, err := ParseSelector(sel)
	return err
}

func validateField(field string) error {
	switch {
	case field == "":
		return fmt.Errorf("%w: empty field name", model.ErrInvalidSelector)
	case strings.HasPrefix(field, "$"):
		return fmt.Errorf("%w: unsupported top-level operator %q", model.ErrInvalidSelector, field)
	case strings.ContainsAny(field, ".\"\\"):
		return fmt.Errorf("%w: field %q: nested paths are not supported", model.ErrInvalidSelector, field)
	}
	return nil
}

// operatorMap reports whether raw is an operator map. A map mixing operator
// and plain keys is an error; a map with only plain keys is a literal.
func operatorMap(raw any) (map[string]any, bool, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		if sel, isSel := raw.(model.Selector); isSel {
			m, ok = map[string]any(sel), true
		}
	}
	if !ok || len(m) == 0 {
		return nil, false, nil
	}

	withDollar := 0
	for key := range m {
		if strings.HasPrefix(key, "$") {
			withDollar++
		}
	}
	switch withDollar {
	case 0:
		return nil, false, nil
	case len(m):
		return m, true, nil
	default:
		return nil, false, fmt.Errorf("operators mixed with plain keys")
	}
}

func parseOperator(field string, op Op, raw any) (Condition, error) {
	wrap := func(format string, args ...any) error {
		return fmt.Errorf("%w: field %q: %s", model.ErrInvalidSelector, field, fmt.Sprintf(format, args...))
	}

	switch op {
	case OpEq, OpNe:
		v, err := Normalize(raw)
		if err != nil {
			return Condition{}, wrap("%v", err)
		}
		return Condition{Field: field, Op: op, Values: []any{v}}, nil
	case OpIn, OpNin:
		v, err := Normalize(raw)
		if err != nil {
			return Condition{}, wrap("%v", err)
		}
		list, ok := v.([]any)
		if !ok {
			return Condition{}, wrap("%s expects an array", op)
		}
		return Condition{Field: field, Op: op, Values: list}, nil
	case OpExists:
		b, ok := raw.(bool)
		if !ok {
			return Condition{}, wrap("$exists expects a boolean")
		}
		return Condition{Field: field, Op: op, Exists: b}, nil
	default:
		return Condition{}, wrap("unknown operator %q", op)
	}
}

// Normalize converts v to its JSON data model form (float64 numbers,
// []any arrays, map[string]any objects) so values from any source compare
// equal when their JSON encodings agree.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Matches reports whether doc satisfies every condition. doc is expected to be
// normalized already.
func Matches(conds []Condition, doc model.Document) bool {
	for _, cond := range conds {
		if !matchCondition(cond, doc) {
			return false
		}
	}
	return true
}

func matchCondition(cond Condition, doc model.Document) bool {
	value, present := doc[cond.Field]

	switch cond.Op {
	case OpEq:
		return equalValue(value, present, cond.Values[0])
	case OpNe:
		return !equalValue(value, present, cond.Values[0])
	case OpIn:
		for _, candidate := range cond.Values {
			if equalValue(value, present, candidate) {
				return true
			}
		}
		return false
	case OpNin:
		for _, candidate := range cond.Values {
			if equalValue(value, present, candidate) {
				return false
			}
		}
		return true
	case OpExists:
		return present == cond.Exists
	}
	return false
}

// equalValue treats a null operand as matching both null and missing fields.
func equalValue(value any, present bool, want any) bool {
	if want == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	return reflect.DeepEqual(value, want)
}
