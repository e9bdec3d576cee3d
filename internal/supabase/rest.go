package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// RestClient queries tables through PostgREST
type RestClient struct {
	api *Client
}

// From starts a query against table
func (r *RestClient) From(table string) *Query {
	return &Query{api: r.api, table: table, columns: "*", filters: url.Values{}}
}

// Query is a table-scoped read. Build it with the chained methods and run it
// with Execute.
type Query struct {
	api     *Client
	table   string
	columns string
	filters url.Values
	order   []string
	limit   int
	single  bool
}

// Select sets the column list, including embedded relations such as
// "*,property:properties(*)". Whitespace is removed.
func (q *Query) Select(columns string) *Query {
	q.columns = compactSelect(columns)
	return q
}

// Eq filters column = value. Dotted columns filter an embedded relation.
func (q *Query) Eq(column string, value any) *Query {
	q.filters.Add(column, "eq."+formatValue(value))
	return q
}

// Lt filters column < value
func (q *Query) Lt(column string, value any) *Query {
	q.filters.Add(column, "lt."+formatValue(value))
	return q
}

// Order appends an ordering term
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

// Limit caps the number of rows
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Single expects exactly one row and decodes it as an object. Zero rows
// fail with an error for which IsNoRows is true.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Values returns the encoded query parameters
func (q *Query) Values() url.Values {
	v := url.Values{}
	v.Set("select", q.columns)
	for k, vals := range q.filters {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return v
}

// Execute runs the query and decodes the rows into dest, a pointer to a slice
// (or to a struct when Single was called).
func (q *Query) Execute(ctx context.Context, dest any) error {
	req := request{
		service: "rest",
		method:  http.MethodGet,
		path:    "/rest/v1/" + q.table,
		query:   q.Values(),
		token:   AccessTokenFrom(ctx),
	}
	if q.single {
		req.header = http.Header{"Accept": {"application/vnd.pgrst.object+json"}}
	}
	if err := q.api.do(ctx, req, dest); err != nil {
		return fmt.Errorf("query %s: %w", q.table, err)
	}
	return nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func compactSelect(columns string) string {
	return strings.Join(strings.Fields(columns), "")
}
