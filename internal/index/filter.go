package index

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterOp is a predicate comparison or combinator, named after
// pkg/core/advanced_filter.go's FilterOperator constants.
type FilterOp string

const (
	OpAnd        FilterOp = "AND"
	OpOr         FilterOp = "OR"
	OpNot        FilterOp = "NOT"
	OpEq         FilterOp = "="
	OpNe         FilterOp = "!="
	OpGt         FilterOp = ">"
	OpGte        FilterOp = ">="
	OpLt         FilterOp = "<"
	OpLte        FilterOp = "<="
	OpIn         FilterOp = "IN"
	OpBetween    FilterOp = "BETWEEN"
	OpLike       FilterOp = "LIKE"
)

// Expr is a node in the advanced predicate tree: either a combinator with
// Children, or a leaf comparison against Field/Value(s).
type Expr struct {
	Op       FilterOp
	Field    string
	Value    string
	Values   []string // for IN / BETWEEN
	Children []*Expr
}

// Eq builds a leaf equality predicate — the common case used by the Query
// DSL parser (C8) for metadata:k=v clauses.
func Eq(field, value string) *Expr {
	return &Expr{Op: OpEq, Field: field, Value: value}
}

// And/Or combine child predicates.
func And(children ...*Expr) *Expr { return &Expr{Op: OpAnd, Children: children} }
func Or(children ...*Expr) *Expr  { return &Expr{Op: OpOr, Children: children} }

// Evaluate applies the predicate tree to a flat metadata map, following
// pkg/core/advanced_filter.go's evaluateFilter/compareValues shape but
// operating over map[string]string rather than map[string]interface{},
// since the spec's metadata model is flat string→string (§9).
func Evaluate(e *Expr, metadata map[string]string) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case OpAnd:
		for _, c := range e.Children {
			if !Evaluate(c, metadata) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range e.Children {
			if Evaluate(c, metadata) {
				return true
			}
		}
		return false
	case OpNot:
		if len(e.Children) != 1 {
			return false
		}
		return !Evaluate(e.Children[0], metadata)
	default:
		return compare(metadata[e.Field], e, metadata)
	}
}

func compare(actual string, e *Expr, metadata map[string]string) bool {
	switch e.Op {
	case OpEq:
		return actual == e.Value
	case OpNe:
		return actual != e.Value
	case OpLike:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(e.Value))
	case OpIn:
		for _, v := range e.Values {
			if actual == v {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		af, aok := toFloat(actual)
		bf, bok := toFloat(e.Value)
		if !aok || !bok {
			return false
		}
		switch e.Op {
		case OpGt:
			return af > bf
		case OpGte:
			return af >= bf
		case OpLt:
			return af < bf
		case OpLte:
			return af <= bf
		}
	case OpBetween:
		if len(e.Values) != 2 {
			return false
		}
		af, aok := toFloat(actual)
		lo, lok := toFloat(e.Values[0])
		hi, hok := toFloat(e.Values[1])
		if !aok || !lok || !hok {
			return false
		}
		return af >= lo && af <= hi
	}
	return false
}

func toFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders e for diagnostics; not used for parsing (see internal/query).
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Op {
	case OpAnd, OpOr:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, " "+string(e.Op)+" "))
	case OpNot:
		if len(e.Children) == 1 {
			return "NOT " + e.Children[0].String()
		}
		return "NOT"
	default:
		return fmt.Sprintf("%s%s%s", e.Field, e.Op, e.Value)
	}
}
