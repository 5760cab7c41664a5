package store

import (
	"fmt"
	"strings"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

// CompareOp is a comparison operator usable in a scan predicate.
// Only equality is exercised by the canned queries, but ordered
// comparisons are part of the model.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

// String returns the operator's symbol.
func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// ParseCompareOp parses an operator symbol.
func ParseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "=", "==":
		return OpEqual, nil
	case "!=":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessOrEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown operator %q: %w", s, sgerrors.ErrInvalidPredicate)
	}
}

// ScanPredicate is a single server-side column comparison. It is a
// structured value, never a formatted filter expression, so literals
// cannot inject filter syntax and predicates validate statically.
type ScanPredicate struct {
	Family    string
	Qualifier string
	Op        CompareOp
	Value     string
}

// Equals builds an equality predicate on family:qualifier.
func Equals(family, qualifier, value string) *ScanPredicate {
	return &ScanPredicate{Family: family, Qualifier: qualifier, Op: OpEqual, Value: value}
}

// Validate checks the predicate's shape.
func (p *ScanPredicate) Validate() error {
	if p == nil {
		return nil
	}
	if p.Family == "" || strings.Contains(p.Family, ":") {
		return fmt.Errorf("bad family %q: %w", p.Family, sgerrors.ErrInvalidPredicate)
	}
	if p.Qualifier == "" {
		return fmt.Errorf("empty qualifier: %w", sgerrors.ErrInvalidPredicate)
	}
	if p.Op < OpEqual || p.Op > OpGreaterOrEqual {
		return fmt.Errorf("bad operator %d: %w", int(p.Op), sgerrors.ErrInvalidPredicate)
	}
	return nil
}

// Matches evaluates the predicate against a row, with the same
// byte-comparison semantics the server applies. Rows missing the column
// do not match.
func (p *ScanPredicate) Matches(row *StoredRow) bool {
	if p == nil {
		return true
	}
	v, ok := row.Value(p.Family, p.Qualifier)
	if !ok {
		return false
	}
	cmp := strings.Compare(v, p.Value)
	switch p.Op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

// String renders the predicate for logs.
func (p *ScanPredicate) String() string {
	if p == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s:%s %s %q", p.Family, p.Qualifier, p.Op, p.Value)
}
