package docstore

import (
	"context"
	"strings"
)

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection.
// With no OrderBy, documents come back in creation order.
type Query struct {
	Collection string
	Where      []Filter
	OrderBy    string
	Desc       bool
	Limit      int // 0 means no limit
}

// WhereEq returns a copy of q with an extra equality filter.
func (q Query) WhereEq(field string, value any) Query {
	q.Where = append(append([]Filter(nil), q.Where...), Filter{Field: field, Value: value})
	return q
}

// Query runs q and returns the matching documents.
// Documents lacking the OrderBy field sort after those that have it.
func (s *Store) Query(ctx context.Context, q Query) ([]Document, error) {
	sqlText, args, err := q.build()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func (q Query) build() (string, []any, error) {
	if err := validateCollection(q.Collection); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := []any{q.Collection}

	b.WriteString(`SELECT id, data, create_time, update_time FROM documents WHERE collection = ?`)

	for _, f := range q.Where {
		path, err := fieldPath(f.Field)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, path, f.Value)
	}

	if q.OrderBy != "" {
		path, err := fieldPath(q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		b.WriteString(` ORDER BY json_extract(data, ?) IS NULL, json_extract(data, ?) ` + dir + `, create_time, id`)
		args = append(args, path, path)
	} else {
		b.WriteString(` ORDER BY create_time, id`)
	}

	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	return b.String(), args, nil
}
