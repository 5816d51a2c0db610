package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// condOp is a comparison operator supported by the filter language.
type condOp string

const (
	opEq       condOp = "="
	opNeq      condOp = "!="
	opGt       condOp = ">"
	opGte      condOp = ">="
	opLt       condOp = "<"
	opLte      condOp = "<="
	opLike     condOp = "LIKE"
	opContains condOp = "CONTAINS"
)

// cond is one "field op value" clause.
type cond struct {
	field string
	op    condOp
	value string
}

// Filter is a parsed SQL-like filter expression: a conjunction of simple
// comparisons, e.g. `record_type = 'document' AND metadata.status = 'published'`.
// This covers the subset of filter expressions the MCP tool surface needs;
// it is not a general SQL parser.
type Filter struct {
	conds []cond
}

// ParseFilter parses expr into a Filter. An empty expr matches everything.
func ParseFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}
	parts := splitAND(expr)
	f := &Filter{}
	for _, p := range parts {
		c, err := parseCond(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		f.conds = append(f.conds, c)
	}
	return f, nil
}

func splitAND(expr string) []string {
	// Case-insensitive split on " AND " outside of quotes.
	var parts []string
	var cur strings.Builder
	inQuote := false
	upper := strings.ToUpper(expr)
	i := 0
	for i < len(expr) {
		c := expr[i]
		if c == '\'' {
			inQuote = !inQuote
			cur.WriteByte(c)
			i++
			continue
		}
		if !inQuote && i+5 <= len(upper) && upper[i:i+5] == " AND " {
			parts = append(parts, cur.String())
			cur.Reset()
			i += 5
			continue
		}
		cur.WriteByte(c)
		i++
	}
	parts = append(parts, cur.String())
	return parts
}

func parseCond(s string) (cond, error) {
	s = strings.TrimSpace(s)
	for _, op := range []condOp{opGte, opLte, opNeq, opEq, opGt, opLt, opLike, opContains} {
		idx := strings.Index(strings.ToUpper(s), string(op))
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(s[:idx])
		value := strings.TrimSpace(s[idx+len(op):])
		value = strings.Trim(value, "'\"")
		if field == "" {
			continue
		}
		return cond{field: strings.ToLower(field), op: op, value: value}, nil
	}
	return cond{}, fmt.Errorf("could not parse condition %q", s)
}

// Match reports whether r satisfies every clause in the filter.
func (f *Filter) Match(r Record) bool {
	if f == nil {
		return true
	}
	for _, c := range f.conds {
		if !matchCond(r, c) {
			return false
		}
	}
	return true
}

func matchCond(r Record, c cond) bool {
	actual, ok := fieldValue(r, c.field)
	if !ok {
		return false
	}
	switch c.op {
	case opEq:
		return actual == c.value
	case opNeq:
		return actual != c.value
	case opLike, opContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.value))
	case opGt, opGte, opLt, opLte:
		af, aerr := strconv.ParseFloat(actual, 64)
		vf, verr := strconv.ParseFloat(c.value, 64)
		if aerr != nil || verr != nil {
			return false
		}
		switch c.op {
		case opGt:
			return af > vf
		case opGte:
			return af >= vf
		case opLt:
			return af < vf
		case opLte:
			return af <= vf
		}
	}
	return false
}

func fieldValue(r Record, field string) (string, bool) {
	switch field {
	case "uuid":
		return r.UUID, true
	case "title":
		return r.Title, true
	case "content":
		return r.Content, true
	case "record_type":
		return string(r.Type), true
	case "metadata.status":
		return string(r.Metadata.Status), true
	case "metadata.author":
		return r.Metadata.Author, true
	case "metadata.collection":
		return r.Metadata.Collection, true
	case "metadata.collection_id":
		return r.Metadata.CollectionID, true
	case "metadata.context":
		return r.Metadata.Context, true
	case "version":
		return strconv.FormatInt(r.Version, 10), true
	default:
		if v, ok := r.Metadata.Custom[strings.TrimPrefix(field, "metadata.custom.")]; ok {
			return v, true
		}
		return "", false
	}
}
