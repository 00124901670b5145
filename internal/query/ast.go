// Package query implements the tag-query pipeline: compound-tag macro
// expansion, parsing, boolean normalization, and compilation into a
// set-algebra SQL query over the image/tag relation.
//
// The pipeline is pure. Given the same compound-tag definitions and metatag
// registry it is referentially transparent, so concurrent use needs no
// locking.
package query

import "strings"

// Mode selects how a metatag value is interpreted.
type Mode string

const (
	// ModePlain treats the value as a literal pattern where only '*' and
	// '?' are wildcards.
	ModePlain Mode = "plain"
	// ModeRegex treats the value as a regular expression.
	ModeRegex Mode = "regex"
)

// Expr is a node of the query syntax tree. The same type doubles as the
// canonical boolean expression produced by Normalize.
type Expr interface {
	// String renders the expression in canonical query syntax. It is the
	// sort key used to make normalization deterministic.
	String() string

	isExpr()
}

// TagExpr matches images carrying the tag with the given label.
type TagExpr struct {
	Label string
}

func (e *TagExpr) String() string { return e.Label }
func (*TagExpr) isExpr()          {}

// MetatagExpr matches images by a derived file attribute instead of an
// assigned tag.
type MetatagExpr struct {
	Name  string
	Mode  Mode
	Value string
}

func (e *MetatagExpr) String() string {
	return e.Name + ":" + string(e.Mode) + ":" + quoteValue(e.Value)
}
func (*MetatagExpr) isExpr() {}

// AndExpr is the intersection of its children. It has at least one child
// after flattening.
type AndExpr struct {
	Children []Expr
}

func (e *AndExpr) String() string { return "(" + joinExprs(e.Children, " ") + ")" }
func (*AndExpr) isExpr()          {}

// OrExpr is the union of its children. It has at least one child after
// flattening.
type OrExpr struct {
	Children []Expr
}

func (e *OrExpr) String() string { return "(" + joinExprs(e.Children, " + ") + ")" }
func (*OrExpr) isExpr()          {}

// NotExpr is the complement of its child within the full image set.
type NotExpr struct {
	Child Expr
}

func (e *NotExpr) String() string { return "-" + e.Child.String() }
func (*NotExpr) isExpr()          {}

// Const is a boolean constant. True is the full image set, False the empty
// set.
type Const bool

const (
	True  Const = true
	False Const = false
)

func (c Const) String() string {
	if c {
		return "<true>"
	}
	return "<false>"
}
func (Const) isExpr() {}

// And builds a conjunction, collapsing the single-child case.
func And(children ...Expr) Expr {
	if len(children) == 1 {
		return children[0]
	}
	return &AndExpr{Children: children}
}

// Or builds a disjunction, collapsing the single-child case.
func Or(children ...Expr) Expr {
	if len(children) == 1 {
		return children[0]
	}
	return &OrExpr{Children: children}
}

// Not builds a negation.
func Not(child Expr) Expr { return &NotExpr{Child: child} }

// Tag builds a tag atom.
func Tag(label string) Expr { return &TagExpr{Label: label} }

// Metatag builds a metatag atom.
func Metatag(name string, mode Mode, value string) Expr {
	return &MetatagExpr{Name: name, Mode: mode, Value: value}
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// quoteValue renders a metatag value back into surface syntax, quoting it
// when it contains characters a bare value cannot carry.
func quoteValue(v string) string {
	for _, r := range v {
		if !isValueRune(r) {
			return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
		}
	}
	return v
}

// Equal reports structural equality of two expressions.
func Equal(a, b Expr) bool {
	return a.String() == b.String()
}
