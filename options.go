package mappify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/mappify/dialect/sql"
	"github.com/syssam/mappify/where"
)

// Options shapes a finder query.
type Options struct {
	// Where filters rows. See package where for the vocabulary.
	Where where.Filter
	// Attributes lists the columns to select. Empty means all.
	Attributes []string
	// Exclude removes columns from the selection.
	Exclude []string
	// Limit is the page size. It must be set together with Offset.
	Limit int
	// Offset is the 1-based page number. The first row read is
	// (Offset-1)*Limit.
	Offset int
	// Order is a comma-separated list of columns, each optionally
	// followed by ASC or DESC.
	Order string
	// Group is a comma-separated list of columns.
	Group string
}

// query is a validated Options value bound to a schema.
type query struct {
	where   where.Filter
	columns []string
	order   []string
	group   []string
	limit   int
	offset  int
	paged   bool
}

// compile validates o against s. Nothing is executed.
func (o Options) compile(s *Schema) (*query, error) {
	q := &query{where: o.Where}
	columns, err := projection(s, o.Attributes, o.Exclude)
	if err != nil {
		return nil, err
	}
	q.columns = columns
	switch {
	case o.Limit < 0:
		return nil, NewValidationError("limit", errors.New("must not be negative"))
	case o.Offset < 0:
		return nil, NewValidationError("offset", errors.New("must not be negative"))
	case o.Limit > 0 && o.Offset == 0:
		return nil, NewValidationError("limit", errors.New("limit requires offset"))
	case o.Offset > 0 && o.Limit == 0:
		return nil, NewValidationError("offset", errors.New("offset requires limit"))
	case o.Limit > 0:
		q.paged = true
		q.limit = o.Limit
		q.offset = (o.Offset - 1) * o.Limit
	}
	if q.order, err = orderTerms(o.Order); err != nil {
		return nil, err
	}
	if q.group, err = identifiers("group", o.Group); err != nil {
		return nil, err
	}
	return q, nil
}

// projection resolves the select list. A nil result means "*".
func projection(s *Schema, attributes, exclude []string) ([]string, error) {
	for _, c := range append(append([]string(nil), attributes...), exclude...) {
		if !sql.IsValidIdentifier(c) {
			return nil, NewValidationError("attributes", fmt.Errorf("invalid column %q", c))
		}
	}
	if len(exclude) == 0 {
		return attributes, nil
	}
	columns := attributes
	if len(columns) == 0 {
		columns = s.Columns()
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		skip[c] = struct{}{}
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, NewValidationError("exclude", errors.New("every column is excluded"))
	}
	return out, nil
}

func orderTerms(order string) ([]string, error) {
	if strings.TrimSpace(order) == "" {
		return nil, nil
	}
	var terms []string
	for _, term := range strings.Split(order, ",") {
		fields := strings.Fields(term)
		if len(fields) == 0 || len(fields) > 2 || !sql.IsValidIdentifier(fields[0]) {
			return nil, NewValidationError("order", fmt.Errorf("invalid term %q", strings.TrimSpace(term)))
		}
		if len(fields) == 2 {
			dir := strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return nil, NewValidationError("order", fmt.Errorf("invalid direction %q", fields[1]))
			}
			fields[1] = dir
		}
		terms = append(terms, strings.Join(fields, " "))
	}
	return terms, nil
}

func identifiers(name, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []string
	for _, c := range strings.Split(list, ",") {
		c = strings.TrimSpace(c)
		if !sql.IsValidIdentifier(c) {
			return nil, NewValidationError(name, fmt.Errorf("invalid column %q", c))
		}
		out = append(out, c)
	}
	return out, nil
}
