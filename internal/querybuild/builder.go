// Package querybuild assembles parameterized WHERE and ORDER BY clauses from
// typed predicates. Column names are checked against a per-table allow-list
// and every value travels as a positional $n argument.
package querybuild

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownColumn is returned when a predicate or ordering names a column outside the allow-list
	ErrUnknownColumn = errors.New("querybuild: unknown column")
	// ErrEmptySet is returned for an InSet predicate with no values
	ErrEmptySet = errors.New("querybuild: empty IN set")
	// ErrNoColumns is returned for a Like predicate without columns
	ErrNoColumns = errors.New("querybuild: like predicate without columns")
)

// Column is a (possibly table-qualified) SQL column reference
type Column string

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Predicate is one condition of a WHERE clause
type Predicate interface {
	columns() []Column
	render(args *argList) string
}

type argList struct {
	next int
	vals []interface{}
}

func (a *argList) add(v interface{}) string {
	a.vals = append(a.vals, v)
	p := fmt.Sprintf("$%d", a.next)
	a.next++
	return p
}

type equals struct {
	col   Column
	value interface{}
}

// Equals matches rows where col = value
func Equals(col Column, value interface{}) Predicate {
	return equals{col: col, value: value}
}

func (p equals) columns() []Column { return []Column{p.col} }

func (p equals) render(args *argList) string {
	return fmt.Sprintf("%s = %s", p.col, args.add(p.value))
}

type like struct {
	cols []Column
	term string
}

// Like matches rows where any of cols contains term, ignoring case.
// LIKE wildcards in term are matched literally.
func Like(term string, cols ...Column) Predicate {
	return like{cols: cols, term: term}
}

func (p like) columns() []Column { return p.cols }

func (p like) render(args *argList) string {
	placeholder := args.add("%" + escapeLike(p.term) + "%")
	parts := make([]string, len(p.cols))
	for i, c := range p.cols {
		parts[i] = fmt.Sprintf("%s ILIKE %s", c, placeholder)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rangePred[T any] struct {
	col          Column
	lower, upper *T
}

// Range matches rows where lower <= col <= upper. A nil bound is omitted.
func Range[T any](col Column, lower, upper *T) Predicate {
	return rangePred[T]{col: col, lower: lower, upper: upper}
}

func (p rangePred[T]) columns() []Column { return []Column{p.col} }

func (p rangePred[T]) render(args *argList) string {
	var parts []string
	if p.lower != nil {
		parts = append(parts, fmt.Sprintf("%s >= %s", p.col, args.add(*p.lower)))
	}
	if p.upper != nil {
		parts = append(parts, fmt.Sprintf("%s <= %s", p.col, args.add(*p.upper)))
	}
	return strings.Join(parts, " AND ")
}

type inSet struct {
	col    Column
	values []interface{}
}

// InSet matches rows where col is one of values
func InSet[T any](col Column, values []T) Predicate {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return inSet{col: col, values: vals}
}

func (p inSet) columns() []Column { return []Column{p.col} }

func (p inSet) render(args *argList) string {
	placeholders := make([]string, len(p.values))
	for i, v := range p.values {
		placeholders[i] = args.add(v)
	}
	return fmt.Sprintf("%s IN (%s)", p.col, strings.Join(placeholders, ", "))
}

type ordering struct {
	col Column
	dir Direction
}

// Builder collects predicates and orderings for one query
type Builder struct {
	allowed    map[Column]struct{}
	predicates []Predicate
	orderings  []ordering
}

// NewBuilder creates a builder that accepts only the given columns
func NewBuilder(allowed ...Column) *Builder {
	set := make(map[Column]struct{}, len(allowed))
	for _, c := range allowed {
		set[c] = struct{}{}
	}
	return &Builder{allowed: set}
}

// Where appends predicates, joined with AND
func (b *Builder) Where(preds ...Predicate) *Builder {
	b.predicates = append(b.predicates, preds...)
	return b
}

// OrderBy appends a sort key
func (b *Builder) OrderBy(col Column, dir Direction) *Builder {
	b.orderings = append(b.orderings, ordering{col: col, dir: dir})
	return b
}

// Query is a rendered clause set
type Query struct {
	// Where is empty or starts with "WHERE "
	Where string
	// OrderBy is empty or starts with "ORDER BY "
	OrderBy string
	Args    []interface{}
	next    int
}

// Placeholder returns the next free positional placeholder and appends v to Args.
// Use it for LIMIT and OFFSET values following the rendered clauses.
func (q *Query) Placeholder(v interface{}) string {
	q.Args = append(q.Args, v)
	p := fmt.Sprintf("$%d", q.next)
	q.next++
	return p
}

// Build renders the clauses. Placeholders are numbered from argStart, which
// lets callers prepend their own arguments.
func (b *Builder) Build(argStart int) (*Query, error) {
	if argStart < 1 {
		argStart = 1
	}
	args := &argList{next: argStart}

	var conds []string
	for _, p := range b.predicates {
		if err := b.check(p.columns()); err != nil {
			return nil, err
		}
		switch v := p.(type) {
		case inSet:
			if len(v.values) == 0 {
				return nil, fmt.Errorf("%w on %s", ErrEmptySet, v.col)
			}
		case like:
			if len(v.cols) == 0 {
				return nil, ErrNoColumns
			}
		}
		if sql := p.render(args); sql != "" {
			conds = append(conds, sql)
		}
	}

	var order []string
	for _, o := range b.orderings {
		if err := b.check([]Column{o.col}); err != nil {
			return nil, err
		}
		dir := o.dir
		if dir != Asc {
			dir = Desc
		}
		order = append(order, fmt.Sprintf("%s %s", o.col, dir))
	}

	q := &Query{Args: args.vals, next: args.next}
	if len(conds) > 0 {
		q.Where = "WHERE " + strings.Join(conds, " AND ")
	}
	if len(order) > 0 {
		q.OrderBy = "ORDER BY " + strings.Join(order, ", ")
	}
	if q.Args == nil {
		q.Args = []interface{}{}
	}
	return q, nil
}

func (b *Builder) check(cols []Column) error {
	for _, c := range cols {
		if _, ok := b.allowed[c]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	return nil
}
