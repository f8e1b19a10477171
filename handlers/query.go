package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/monoculum/formam"

	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/godatautil"
	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type listInput struct {
	Q      string `formam:"q"`
	Offset int    `formam:"offset"`
	Limit  int    `formam:"limit"`
}

type listQuery struct {
	condition sb.AsExpr
	orders    []sb.AsOrderingTerm
	page      *sb.OffsetLimitClause
}

var formDecoder = formam.NewDecoder(&formam.DecoderOptions{
	TagName:           "formam",
	IgnoreUnknownKeys: true,
})

// parseListQuery reads the plain q/offset/limit parameters and any OData
// options from the query string. q searches the title column; the OData
// $filter is ANDed with it.
func parseListQuery(r *http.Request, table *sqlbuilderutil.Table, defaultOrders ...sb.AsOrderingTerm) (*listQuery, error) {
	values := r.URL.Query()

	plain := make(url.Values)
	for k, v := range values {
		if !strings.HasPrefix(k, "$") {
			plain[k] = v
		}
	}

	input := listInput{Limit: defaultLimit}
	if err := formDecoder.Decode(plain, &input); err != nil {
		return nil, fmt.Errorf("handlers.parseListQuery: %w: %w", diag.ErrMalformedInput, err)
	}

	q, err := godatautil.Parse(values)
	if err != nil {
		return nil, fmt.Errorf("handlers.parseListQuery: %w", err)
	}

	var conditions []sb.AsExpr

	if input.Q != "" {
		conditions = append(conditions, godatautil.Contains(table.C("Title"), input.Q))
	}

	filter, err := godatautil.MakeCondition(q, table)
	if err != nil {
		return nil, fmt.Errorf("handlers.parseListQuery: %w", err)
	}
	if filter != nil {
		conditions = append(conditions, filter)
	}

	orders, err := godatautil.MakeOrders(q, table, defaultOrders...)
	if err != nil {
		return nil, fmt.Errorf("handlers.parseListQuery: %w", err)
	}

	lq := &listQuery{
		orders: orders,
		page:   godatautil.MakeOffsetLimit(q, input.Offset, input.Limit, maxLimit),
	}

	switch len(conditions) {
	case 0:
	case 1:
		lq.condition = conditions[0]
	default:
		lq.condition = sb.BooleanOperator("and", conditions...)
	}

	return lq, nil
}
