package query

import (
	"fmt"
	"strings"
)

// imageColumns is the column list every branch of a compiled set-algebra
// query selects, so UNION/INTERSECT/EXCEPT operands always line up.
const imageColumns = "id, path, hash, blur_hash, created_at, updated_at"

// Compiled is an executable set-algebra query over the image/tag relation.
// SQL uses placeholders exclusively; user-controlled text only ever reaches
// the database through Args.
//
// Empty marks the "no query" case: a query that normalized to False matches
// nothing, and the caller must return zero results without executing
// anything.
type Compiled struct {
	SQL   string
	Args  []any
	Empty bool
}

// Compile translates a normalized expression into SQL: tag atoms join
// through the image_tags relation, metatag atoms filter the path with the
// registry's REGEXP pattern, And becomes INTERSECT, Or becomes UNION, and
// Not subtracts from the full image set with EXCEPT.
//
// Every metatag atom is validated against the registry before any SQL is
// assembled; the first failure aborts the whole compilation.
func Compile(e Expr, reg *Registry) (*Compiled, error) {
	if err := validateMetatags(e, reg); err != nil {
		return nil, err
	}
	if e == False {
		return &Compiled{Empty: true}, nil
	}
	sql, args, err := compileExpr(e, reg)
	if err != nil {
		return nil, err
	}
	return &Compiled{SQL: sql, Args: args}, nil
}

// validateMetatags walks the expression in syntax order and checks every
// metatag atom, so compilation is all-or-nothing.
func validateMetatags(e Expr, reg *Registry) error {
	switch e := e.(type) {
	case *MetatagExpr:
		return reg.ValidateValue(e.Name, e.Mode, e.Value)
	case *NotExpr:
		return validateMetatags(e.Child, reg)
	case *AndExpr:
		for _, c := range e.Children {
			if err := validateMetatags(c, reg); err != nil {
				return err
			}
		}
	case *OrExpr:
		for _, c := range e.Children {
			if err := validateMetatags(c, reg); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileExpr(e Expr, reg *Registry) (string, []any, error) {
	switch e := e.(type) {
	case *TagExpr:
		sql := `SELECT I.` + strings.ReplaceAll(imageColumns, ", ", ", I.") + `
FROM images AS I
JOIN image_tags AS IT ON IT.image_id = I.id
JOIN tags AS T ON T.id = IT.tag_id
WHERE T.label = ?`
		return sql, []any{e.Label}, nil

	case *MetatagExpr:
		pattern, err := reg.pattern(e.Name, e.Mode, e.Value)
		if err != nil {
			return "", nil, err
		}
		sql := `SELECT ` + imageColumns + ` FROM images WHERE path REGEXP ?`
		return sql, []any{pattern}, nil

	case *AndExpr:
		return compileSetOp(e.Children, "INTERSECT", reg)

	case *OrExpr:
		return compileSetOp(e.Children, "UNION", reg)

	case *NotExpr:
		sub, args, err := compileExpr(e.Child, reg)
		if err != nil {
			return "", nil, err
		}
		sql := `SELECT ` + imageColumns + ` FROM images
EXCEPT
` + operand(sub)
		return sql, args, nil

	case Const:
		if e == True {
			return `SELECT ` + imageColumns + ` FROM images`, nil, nil
		}
		// Normalize eliminates nested False; only the top level may see
		// it, and Compile short-circuits that before recursing.
		return "", nil, fmt.Errorf("unnormalized false constant in expression %s", e)
	}

	return "", nil, fmt.Errorf("unsupported expression node %T", e)
}

// compileSetOp joins the children's queries with a compound operator. Each
// operand is wrapped in a plain subselect so nested compounds keep their own
// grouping; SQLite compound operators would otherwise associate left to
// right across the whole statement.
func compileSetOp(children []Expr, op string, reg *Registry) (string, []any, error) {
	parts := make([]string, 0, len(children))
	var args []any
	for _, c := range children {
		sub, subArgs, err := compileExpr(c, reg)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, operand(sub))
		args = append(args, subArgs...)
	}
	return strings.Join(parts, "\n"+op+"\n"), args, nil
}

// operand wraps a subquery so it is a simple SELECT.
func operand(sub string) string {
	return `SELECT ` + imageColumns + ` FROM (` + sub + `)`
}
