package repository

import (
	"github.com/doug-martin/goqu/v9"
)

// queryBuilderImpl collects handler-side filters keyed by their query
// parameter name. Column names are resolved only when the expression is
// built, so handlers never need to know the underlying schema.
type queryBuilderImpl struct {
	filters map[string]interface{}
}

func NewQueryBuilder() QueryBuilder {
	return &queryBuilderImpl{filters: map[string]interface{}{}}
}

func (q *queryBuilderImpl) AddCondition(key string, value interface{}) {
	q.filters[key] = value
}

// BuildConditions renders the collected filters as a goqu expression.
// Keys present in aliases are rewritten to the mapped column; the rest
// pass through unchanged.
func (q *queryBuilderImpl) BuildConditions(aliases map[string]string) goqu.Ex {
	ex := make(goqu.Ex, len(q.filters))
	for key, value := range q.filters {
		column := key
		if alias, ok := aliases[key]; ok {
			column = alias
		}
		ex[column] = value
	}
	return ex
}
