// Package godatautil turns OData query options ($filter, $orderby, $skip,
// $top) into sqlbuilder clauses against a model table.
package godatautil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gost/godata"

	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
)

var (
	ErrFieldNotFound = fmt.Errorf("field not found")
)

// Parse reads the $-prefixed options out of query. It returns nil when there
// are none, which every Make function accepts.
func Parse(query url.Values) (*godata.GoDataQuery, error) {
	options := make(url.Values)
	for k, v := range query {
		if strings.HasPrefix(k, "$") {
			options[k] = v
		}
	}

	if len(options) == 0 {
		return nil, nil
	}

	q, err := godata.ParseUrlQuery(options)
	if err != nil {
		return nil, fmt.Errorf("godatautil.Parse: %w: %w", diag.ErrMalformedInput, err)
	}

	return q, nil
}

func MakeCondition(q *godata.GoDataQuery, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	if q == nil || q.Filter == nil {
		return nil, nil
	}

	expr, err := makeCondition(q.Filter.Tree, table)
	if err != nil {
		return nil, fmt.Errorf("godatautil.MakeCondition: %w: %w", diag.ErrMalformedInput, err)
	}

	return expr, nil
}

func makeCondition(n *godata.ParseNode, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	switch n.Token.Type {
	case godata.FilterTokenLogical:
		var a []sb.AsExpr
		if n.Token.Value == "and" || n.Token.Value == "or" {
			for _, e := range n.Children {
				expr, err := makeCondition(e, table)
				if err != nil {
					return nil, fmt.Errorf("godatautil.makeCondition: %w", err)
				}
				a = append(a, expr)
			}
		}
		switch n.Token.Value {
		case "and", "or":
			return sb.BooleanOperator(n.Token.Value, a...), nil
		case "eq", "ne", "gt", "ge", "lt", "le":
			return makeComparison(n, table)
		default:
			return nil, fmt.Errorf("godatautil.makeCondition: unrecognised logical filter type %q", n.Token.Value)
		}
	case godata.FilterTokenFunc:
		switch n.Token.Value {
		case "contains":
			if len(n.Children) != 2 {
				return nil, fmt.Errorf("godatautil.makeCondition: contains must have exactly two arguments; instead had %d", len(n.Children))
			}
			return makeSubstring(n.Token.Value, n.Children[0], n.Children[1], table)
		case "substringof":
			if len(n.Children) != 2 {
				return nil, fmt.Errorf("godatautil.makeCondition: substringof must have exactly two arguments; instead had %d", len(n.Children))
			}
			return makeSubstring(n.Token.Value, n.Children[0], n.Children[1], table)
		default:
			return nil, fmt.Errorf("godatautil.makeCondition: unrecognised function %s", n.Token.Value)
		}
	default:
		return nil, fmt.Errorf("godatautil.makeCondition: unrecognised token type %d (%s)", n.Token.Type, filterTokenName(n.Token.Type))
	}
}

// makeSubstring accepts its field and string arguments in either order, since
// substringof and contains disagree about it.
func makeSubstring(name string, field, value *godata.ParseNode, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	if field.Token.Type == godata.FilterTokenString && value.Token.Type == godata.FilterTokenLiteral {
		field, value = value, field
	}

	if tokenType := field.Token.Type; tokenType != godata.FilterTokenLiteral {
		return nil, fmt.Errorf("godatautil.makeSubstring: %s field argument must be Literal; was instead %s", name, filterTokenName(tokenType))
	}
	if tokenType := value.Token.Type; tokenType != godata.FilterTokenString {
		return nil, fmt.Errorf("godatautil.makeSubstring: %s value argument must be String; was instead %s", name, filterTokenName(tokenType))
	}

	c, ok := table.Lookup(field.Token.Value)
	if !ok {
		return nil, fmt.Errorf("godatautil.makeSubstring: unrecognised field %s: %w", field.Token.Value, ErrFieldNotFound)
	}

	return Contains(c, unquote(value.Token.Value)), nil
}

// Contains matches rows where col contains s, ignoring case.
func Contains(col sb.AsExpr, s string) sb.AsExpr {
	return sb.Ne(
		sb.Func("instr", sb.Func("lower", col), sb.Bind(strings.ToLower(s))),
		sb.Literal("0"),
	)
}

var comparisonOperators = map[string]string{
	"eq": "=",
	"ne": "!=",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

func makeComparison(n *godata.ParseNode, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	if len(n.Children) != 2 {
		return nil, fmt.Errorf("godatautil.makeComparison: %s must have exactly two operands; instead had %d", n.Token.Value, len(n.Children))
	}

	field, value := n.Children[0], n.Children[1]

	if tokenType := field.Token.Type; tokenType != godata.FilterTokenLiteral {
		return nil, fmt.Errorf("godatautil.makeComparison: left operand must be Literal; was instead %s", filterTokenName(tokenType))
	}

	c, ok := table.Lookup(field.Token.Value)
	if !ok {
		return nil, fmt.Errorf("godatautil.makeComparison: unrecognised field %s: %w", field.Token.Value, ErrFieldNotFound)
	}

	var v interface{}
	switch value.Token.Type {
	case godata.FilterTokenString:
		v = unquote(value.Token.Value)
	case godata.FilterTokenInteger:
		i, err := strconv.ParseInt(value.Token.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("godatautil.makeComparison: %w", err)
		}
		v = i
	case godata.FilterTokenBoolean:
		v = value.Token.Value == "true"
	default:
		return nil, fmt.Errorf("godatautil.makeComparison: right operand must be String, Integer or Boolean; was instead %s", filterTokenName(value.Token.Type))
	}

	return sb.BinaryOperator(comparisonOperators[n.Token.Value], c, sb.Bind(v)), nil
}

func filterTokenName(tokenType int) string {
	switch tokenType {
	case godata.FilterTokenOpenParen: // 0
		return "OpenParen"
	case godata.FilterTokenCloseParen: // 1
		return "CloseParen"
	case godata.FilterTokenWhitespace: // 2
		return "Whitespace"
	case godata.FilterTokenNav: // 3
		return "Nav"
	case godata.FilterTokenColon: // 4
		return "Colon"
	case godata.FilterTokenComma: // 5
		return "Comma"
	case godata.FilterTokenLogical: // 6
		return "Logical"
	case godata.FilterTokenOp: // 7
		return "Op"
	case godata.FilterTokenFunc: // 8
		return "Func"
	case godata.FilterTokenLambda: // 9
		return "Lambda"
	case godata.FilterTokenNull: // 10
		return "Null"
	case godata.FilterTokenIt: // 11
		return "It"
	case godata.FilterTokenRoot: // 12
		return "Root"
	case godata.FilterTokenFloat: // 13
		return "Float"
	case godata.FilterTokenInteger: // 14
		return "Integer"
	case godata.FilterTokenString: // 15
		return "String"
	case godata.FilterTokenDate: // 16
		return "Date"
	case godata.FilterTokenTime: // 17
		return "Time"
	case godata.FilterTokenDateTime: // 18
		return "DateTime"
	case godata.FilterTokenBoolean: // 19
		return "Boolean"
	case godata.FilterTokenLiteral: // 20
		return "Literal"
	case godata.FilterTokenGeography: // 21
		return "Geography"
	default:
		return "???" // ??
	}
}

func MakeOrders(q *godata.GoDataQuery, table *sqlbuilderutil.Table, defaultOrders ...sb.AsOrderingTerm) ([]sb.AsOrderingTerm, error) {
	if q == nil || q.OrderBy == nil {
		return defaultOrders, nil
	}

	var a []sb.AsOrderingTerm

	for _, item := range q.OrderBy.OrderByItems {
		c, ok := table.Lookup(item.Field.Value)
		if !ok {
			return nil, fmt.Errorf("godatautil.MakeOrders: could not find field %q: %w: %w", item.Field.Value, ErrFieldNotFound, diag.ErrMalformedInput)
		}

		switch item.Order {
		case "asc":
			a = append(a, sb.OrderAsc(c))
		case "desc":
			a = append(a, sb.OrderDesc(c))
		default:
			a = append(a, sb.OrderAsc(c))
		}
	}

	if len(a) == 0 {
		return defaultOrders, nil
	}

	return a, nil
}

// MakeOffsetLimit clamps $top to maxTop when maxTop is positive.
func MakeOffsetLimit(q *godata.GoDataQuery, defaultSkip, defaultTop, maxTop int) *sb.OffsetLimitClause {
	skip := defaultSkip
	if q != nil && q.Skip != nil {
		skip = int(*q.Skip)
	}

	top := defaultTop
	if q != nil && q.Top != nil {
		top = int(*q.Top)
	}

	if skip < 0 {
		skip = 0
	}
	if maxTop > 0 && (top <= 0 || top > maxTop) {
		top = maxTop
	}

	return sb.OffsetLimit(sb.Bind(skip), sb.Bind(top))
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}

	return strings.Replace(s[1:len(s)-1], "''", "'", -1)
}
