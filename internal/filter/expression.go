package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

// Supported condition operators.
const (
	OpEqual         = "eq"
	OpNotEqual      = "ne"
	OpGreater       = "gt"
	OpGreaterEqual  = "gte"
	OpLess          = "lt"
	OpLessEqual     = "lte"
	OpContains      = "contains"
	OpNotContains   = "ncontains"
	OpContainsAnyOf = "contains_any_of"
	OpExists        = "exists"
)

// Group operators.
const (
	And = "AND"
	Or  = "OR"
)

var operatorAliases = map[string]string{
	"":      OpEqual,
	"exact": OpEqual,
	"=":     OpEqual,
	"!=":    OpNotEqual,
	">":     OpGreater,
	">=":    OpGreaterEqual,
	"<":     OpLess,
	"<=":    OpLessEqual,
}

// Condition is a single field test. Field may be a dotted path.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Expression combines conditions and nested groups with AND/OR logic.
// An empty operator means OR; an empty expression matches everything.
type Expression struct {
	Operator string       `json:"operator"`
	Filters  []Condition  `json:"filters"`
	Groups   []Expression `json:"groups"`
}

// Parse decodes a JSON filter expression and normalizes it.
func Parse(data []byte) (*Expression, error) {
	var expr Expression
	if err := json.Unmarshal(data, &expr); err != nil {
		return nil, internalErrors.NewValidationError("filter", err.Error())
	}
	if err := expr.Normalize(); err != nil {
		return nil, err
	}
	return &expr, nil
}

// Normalize canonicalizes operator spellings in place ("_gte" and ">=" both
// become "gte") and rejects unknown operators.
func (e *Expression) Normalize() error {
	switch strings.ToUpper(e.Operator) {
	case "", Or:
		e.Operator = Or
	case And:
		e.Operator = And
	default:
		return internalErrors.NewValidationError("filter.operator",
			fmt.Sprintf("unknown group operator '%s' (must be AND or OR)", e.Operator))
	}

	for i := range e.Filters {
		c := &e.Filters[i]
		if strings.TrimSpace(c.Field) == "" {
			return internalErrors.NewValidationError("filter.field", "field name cannot be empty")
		}
		op := strings.ToLower(strings.TrimPrefix(c.Operator, "_"))
		if alias, ok := operatorAliases[op]; ok {
			op = alias
		}
		switch op {
		case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
			OpContains, OpNotContains:
		case OpContainsAnyOf:
			if _, ok := c.Value.([]interface{}); !ok {
				return internalErrors.NewValidationError("filter.value",
					fmt.Sprintf("operator '%s' on field '%s' needs an array value", op, c.Field))
			}
		case OpExists:
			if c.Value == nil {
				c.Value = true
			}
			if _, ok := c.Value.(bool); !ok {
				return internalErrors.NewValidationError("filter.value",
					fmt.Sprintf("operator '%s' on field '%s' needs a boolean value", op, c.Field))
			}
		default:
			return internalErrors.NewValidationError("filter.operator",
				fmt.Sprintf("unknown operator '%s' for field '%s'", c.Operator, c.Field))
		}
		c.Operator = op
	}

	for i := range e.Groups {
		if err := e.Groups[i].Normalize(); err != nil {
			return err
		}
	}
	if e.Filters == nil {
		e.Filters = []Condition{}
	}
	if e.Groups == nil {
		e.Groups = []Expression{}
	}
	return nil
}

// Match evaluates the expression against doc. The first condition error
// aborts evaluation.
func (e *Expression) Match(doc model.Document) (bool, error) {
	results := 0
	matched := 0
	for _, condition := range e.Filters {
		ok, err := condition.Match(doc)
		if err != nil {
			return false, err
		}
		results++
		if ok {
			matched++
		}
	}
	for i := range e.Groups {
		ok, err := e.Groups[i].Match(doc)
		if err != nil {
			return false, err
		}
		results++
		if ok {
			matched++
		}
	}

	if results == 0 {
		return true, nil
	}
	if e.Operator == And {
		return matched == results, nil
	}
	return matched > 0, nil
}

// Source returns the canonical JSON text of the expression. Map values are
// emitted with sorted keys, so equal expressions give equal sources.
func (e *Expression) Source() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		// values decoded from JSON always re-encode
		return fmt.Sprintf("%#v", e)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Match evaluates a single condition. Documents missing the field fail
// every operator except exists.
func (c Condition) Match(doc model.Document) (bool, error) {
	value, exists := doc.Lookup(c.Field)
	if c.Operator == OpExists {
		want, _ := c.Value.(bool)
		return exists == want, nil
	}
	if !exists {
		return false, nil
	}

	switch c.Operator {
	case OpEqual, "":
		return applyEqualityFilter(value, c.Value), nil
	case OpNotEqual:
		return !applyEqualityFilter(value, c.Value), nil
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		ok, comparable := applyComparisonFilter(value, c.Value, c.Operator)
		if !comparable {
			return false, &ConditionError{Field: c.Field, Operator: c.Operator, Value: value}
		}
		return ok, nil
	case OpContains:
		return applyContainsFilter(value, c.Value), nil
	case OpNotContains:
		return !applyContainsFilter(value, c.Value), nil
	case OpContainsAnyOf:
		return applyContainsAnyOfFilter(value, c.Value), nil
	}
	return false, &ConditionError{Field: c.Field, Operator: c.Operator, Value: value}
}

// ConditionError reports a condition that cannot be evaluated against the
// value a document holds, such as ordering a string against a number.
type ConditionError struct {
	Field    string
	Operator string
	Value    interface{}
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("cannot apply operator '%s' to field '%s' holding %T", e.Operator, e.Field, e.Value)
}
