// Package catalog filters and pages campaign summaries using AIP-160
// filter expressions.
package catalog

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// Predicate reports whether a summary matches a filter.
type Predicate func(document.Summary) bool

// Declarations returns the field declarations for campaign filtering.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("id", filtering.TypeString),
		filtering.DeclareIdent("title", filtering.TypeString),
		filtering.DeclareIdent("description", filtering.TypeString),
		filtering.DeclareIdent("difficulty", filtering.TypeString),
		filtering.DeclareIdent("estimated_duration", filtering.TypeString),
		filtering.DeclareIdent("min_level", filtering.TypeInt),
		filtering.DeclareIdent("max_level", filtering.TypeInt),
		filtering.DeclareIdent("scene_count", filtering.TypeInt),
	)
}

// fieldValues maps filter field names to summary accessors.
var fieldValues = map[string]func(document.Summary) any{
	"id":                 func(s document.Summary) any { return s.ID },
	"title":              func(s document.Summary) any { return s.Title },
	"description":        func(s document.Summary) any { return s.Description },
	"difficulty":         func(s document.Summary) any { return string(s.Difficulty) },
	"estimated_duration": func(s document.Summary) any { return s.EstimatedDuration },
	"min_level":          func(s document.Summary) any { return int64(s.MinLevel) },
	"max_level":          func(s document.Summary) any { return int64(s.MaxLevel) },
	"scene_count":        func(s document.Summary) any { return int64(s.SceneCount) },
}

// ParseFilter parses an AIP-160 filter expression into a predicate.
// An empty filter matches everything.
func ParseFilter(filterStr string) (Predicate, error) {
	if strings.TrimSpace(filterStr) == "" {
		return func(document.Summary) bool { return true }, nil
	}

	decls, err := Declarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, invalidFilter(filterStr, err)
	}

	pred, err := translateExpr(filter.CheckedExpr.GetExpr())
	if err != nil {
		return nil, invalidFilter(filterStr, err)
	}
	return pred, nil
}

func invalidFilter(filterStr string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeInvalidArgument,
		"invalid campaign filter",
		map[string]string{"Filter": filterStr},
		cause,
	)
}

func translateExpr(e *expr.Expr) (Predicate, error) {
	if e == nil {
		return func(document.Summary) bool { return true }, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (Predicate, error) {
	switch call.Function {
	case filtering.FunctionAnd, "_&&_":
		return translateLogical(call.Args, func(a, b bool) bool { return a && b })
	case filtering.FunctionOr, "_||_":
		return translateLogical(call.Args, func(a, b bool) bool { return a || b })
	case filtering.FunctionNot, "!_":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		return func(s document.Summary) bool { return !inner(s) }, nil
	case filtering.FunctionHas:
		return translateHas(call.Args)
	case filtering.FunctionEquals, "_==_":
		return translateComparison(call.Args, func(c int) bool { return c == 0 })
	case filtering.FunctionNotEquals, "_!=_":
		return translateComparison(call.Args, func(c int) bool { return c != 0 })
	case filtering.FunctionLessThan, "_<_":
		return translateComparison(call.Args, func(c int) bool { return c < 0 })
	case filtering.FunctionLessEquals, "_<=_":
		return translateComparison(call.Args, func(c int) bool { return c <= 0 })
	case filtering.FunctionGreaterThan, "_>_":
		return translateComparison(call.Args, func(c int) bool { return c > 0 })
	case filtering.FunctionGreaterEquals, "_>=_":
		return translateComparison(call.Args, func(c int) bool { return c >= 0 })
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateLogical(args []*expr.Expr, combine func(a, b bool) bool) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("logical operator requires 2 arguments")
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return nil, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return nil, err
	}
	return func(s document.Summary) bool { return combine(left(s), right(s)) }, nil
}

// translateHas treats field:"text" as a case-insensitive substring match.
func translateHas(args []*expr.Expr) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has requires 2 arguments")
	}
	get, err := fieldAccessor(args[0])
	if err != nil {
		return nil, err
	}
	value, err := extractConstValue(args[1])
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(fmt.Sprint(value))
	return func(s document.Summary) bool {
		return strings.Contains(strings.ToLower(fmt.Sprint(get(s))), needle)
	}, nil
}

func translateComparison(args []*expr.Expr, accept func(int) bool) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}
	get, err := fieldAccessor(args[0])
	if err != nil {
		return nil, err
	}
	value, err := extractConstValue(args[1])
	if err != nil {
		return nil, err
	}
	return func(s document.Summary) bool {
		c, ok := compare(get(s), value)
		return ok && accept(c)
	}, nil
}

func fieldAccessor(e *expr.Expr) (func(document.Summary) any, error) {
	ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return nil, fmt.Errorf("expected identifier, got %T", e.GetExprKind())
	}
	get, ok := fieldValues[ident.IdentExpr.GetName()]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s", ident.IdentExpr.GetName())
	}
	return get, nil
}

func extractConstValue(e *expr.Expr) (any, error) {
	constant, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch kind := constant.ConstExpr.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

// compare orders a field value against a constant of the same type.
func compare(field, value any) (int, bool) {
	switch f := field.(type) {
	case string:
		v, ok := value.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(f, v), true
	case int64:
		v, ok := value.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case f < v:
			return -1, true
		case f > v:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}
