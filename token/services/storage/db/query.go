/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"fmt"
	"strings"
)

// Select builds a SELECT statement. Conditions use $n placeholders, they work with both drivers.
type Select struct {
	columns []string
	from    string
	where   []string
	orderBy string
	limit   int
}

func NewSelect(columns ...string) *Select {
	return &Select{columns: columns}
}

func (s *Select) From(table string) *Select {
	s.from = table
	return s
}

// Where adds a condition, conditions are joined with AND
func (s *Select) Where(condition string) *Select {
	s.where = append(s.where, condition)
	return s
}

func (s *Select) OrderBy(orderBy string) *Select {
	s.orderBy = orderBy
	return s
}

func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

func (s *Select) Compile() string {
	sb := new(strings.Builder)
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(s.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(s.from)
	if len(s.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(s.where, " AND "))
	}
	if len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(s.orderBy)
	}
	if s.limit > 0 {
		fmt.Fprintf(sb, " LIMIT %d", s.limit)
	}
	return sb.String()
}

type Insert struct {
	table      string
	columns    []string
	onConflict bool
}

func NewInsertInto(table string) *Insert {
	return &Insert{table: table}
}

func (i *Insert) Columns(columns ...string) *Insert {
	i.columns = columns
	return i
}

// OnConflictDoNothing makes a duplicate row a no-op
func (i *Insert) OnConflictDoNothing() *Insert {
	i.onConflict = true
	return i
}

func (i *Insert) Compile() string {
	sb := new(strings.Builder)
	sb.WriteString("INSERT INTO ")
	sb.WriteString(i.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(i.columns, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(Placeholders(1, len(i.columns)))
	sb.WriteString(")")
	if i.onConflict {
		sb.WriteString(" ON CONFLICT DO NOTHING")
	}
	return sb.String()
}

// Placeholders returns n comma separated placeholders starting at $from
func Placeholders(from, n int) string {
	ps := make([]string, n)
	for k := range ps {
		ps[k] = fmt.Sprintf("$%d", from+k)
	}
	return strings.Join(ps, ", ")
}
