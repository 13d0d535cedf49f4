package analyze

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op is one analysis template. The catalogue is closed: templates are pure
// functions over an in-memory row set, and the SQL rendering in explanations
// is cosmetic, never executed.
type Op int

const (
	// OpCount counts all rows.
	OpCount Op = iota
	// OpGroupBy counts rows per distinct value of one column.
	OpGroupBy
	// OpDuplicateScan finds repeated rows (full-row) or repeated values
	// (single-column).
	OpDuplicateScan
	// OpAggregate computes count/avg/sum/min/max over a numeric column.
	OpAggregate
	// OpTopN ranks rows by a numeric column.
	OpTopN
	// OpDistinct lists the distinct values of one column.
	OpDistinct
)

// groupLimit bounds per-value breakdowns so one high-cardinality column
// cannot flood an explanation.
const groupLimit = 10

// Query is one selected template instance.
type Query struct {
	Op         Op
	Column     string
	Descending bool
}

// Describe renders the query as SQL-ish text for explanations.
func (q Query) Describe(table string) string {
	switch q.Op {
	case OpCount:
		return fmt.Sprintf("SELECT COUNT(*) AS total_rows FROM %s", table)
	case OpGroupBy:
		return fmt.Sprintf("SELECT %q, COUNT(*) AS count FROM %s GROUP BY %q ORDER BY count DESC LIMIT %d", q.Column, table, q.Column, groupLimit)
	case OpDuplicateScan:
		if q.Column == "" {
			return fmt.Sprintf("SELECT *, COUNT(*) AS duplicate_count FROM %s GROUP BY ALL COLUMNS HAVING COUNT(*) > 1", table)
		}
		return fmt.Sprintf("SELECT %q, COUNT(*) AS count FROM %s GROUP BY %q HAVING COUNT(*) > 1 ORDER BY count DESC", q.Column, table, q.Column)
	case OpAggregate:
		return fmt.Sprintf("SELECT COUNT, AVG, SUM, MIN, MAX OF %q FROM %s", q.Column, table)
	case OpTopN:
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		return fmt.Sprintf("SELECT * FROM %s ORDER BY %q %s LIMIT %d", table, q.Column, dir, groupLimit)
	case OpDistinct:
		return fmt.Sprintf("SELECT DISTINCT %q FROM %s ORDER BY %q", q.Column, table, q.Column)
	default:
		return "unknown query"
	}
}

// SelectQueries picks template instances for a question against one table,
// by keyword matching on the question text.
func SelectQueries(question string, t Table) []Query {
	lower := strings.ToLower(question)
	var queries []Query

	if strings.Contains(lower, "duplicate") {
		queries = append(queries, Query{Op: OpDuplicateScan})
		for _, col := range identifierColumns(t.Headers) {
			queries = append(queries, Query{Op: OpDuplicateScan, Column: col})
		}
	}

	if strings.Contains(lower, "count") || strings.Contains(lower, "how many") {
		queries = append(queries, Query{Op: OpCount})
		for _, col := range t.Headers {
			queries = append(queries, Query{Op: OpGroupBy, Column: col})
		}
	}

	if strings.Contains(lower, "average") || strings.Contains(lower, "avg") ||
		strings.Contains(lower, "sum") || strings.Contains(lower, "max") || strings.Contains(lower, "min") {
		for _, col := range numericColumns(t.Headers) {
			queries = append(queries, Query{Op: OpAggregate, Column: col})
		}
	}

	if strings.Contains(lower, "top") || strings.Contains(lower, "highest") ||
		strings.Contains(lower, "bottom") || strings.Contains(lower, "lowest") {
		for _, col := range numericColumns(t.Headers) {
			queries = append(queries, Query{Op: OpTopN, Column: col, Descending: true})
			queries = append(queries, Query{Op: OpTopN, Column: col})
		}
	}

	if strings.Contains(lower, "unique") || strings.Contains(lower, "distinct") {
		for _, col := range t.Headers {
			queries = append(queries, Query{Op: OpDistinct, Column: col})
		}
	}

	return queries
}

// Run evaluates one query over the table. Result rows are header-keyed maps;
// synthetic columns (count, duplicate_count, aggregates) use fixed keys.
func Run(t Table, q Query) []map[string]string {
	switch q.Op {
	case OpCount:
		return []map[string]string{{"total_rows": strconv.Itoa(len(t.Rows))}}
	case OpGroupBy:
		return runGroupBy(t, q.Column, false)
	case OpDuplicateScan:
		if q.Column == "" {
			return runDuplicateRows(t)
		}
		return runGroupBy(t, q.Column, true)
	case OpAggregate:
		return runAggregate(t, q.Column)
	case OpTopN:
		return runTopN(t, q.Column, q.Descending)
	case OpDistinct:
		return runDistinct(t, q.Column)
	default:
		return nil
	}
}

func (t Table) columnIndex(column string) int {
	for i, h := range t.Headers {
		if h == column {
			return i
		}
	}
	return -1
}

// runGroupBy counts rows per value. onlyRepeated keeps groups with more than
// one member (the single-column duplicate scan).
func runGroupBy(t Table, column string, onlyRepeated bool) []map[string]string {
	idx := t.columnIndex(column)
	if idx < 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, row := range t.Rows {
		counts[row[idx]]++
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	// Count descending, then value for determinism.
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})

	var out []map[string]string
	for _, v := range values {
		if onlyRepeated && counts[v] < 2 {
			continue
		}
		out = append(out, map[string]string{
			column:  v,
			"count": strconv.Itoa(counts[v]),
		})
		if !onlyRepeated && len(out) == groupLimit {
			break
		}
	}
	return out
}

// runDuplicateRows groups by the full row and reports groups seen more than
// once, with a duplicate_count column.
func runDuplicateRows(t Table) []map[string]string {
	counts := make(map[string]int)
	first := make(map[string][]string)
	var order []string
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if counts[key] == 0 {
			first[key] = row
			order = append(order, key)
		}
		counts[key]++
	}

	var out []map[string]string
	for _, key := range order {
		if counts[key] < 2 {
			continue
		}
		entry := map[string]string{"duplicate_count": strconv.Itoa(counts[key])}
		for i, h := range t.Headers {
			entry[h] = first[key][i]
		}
		out = append(out, entry)
	}
	return out
}

func runAggregate(t Table, column string) []map[string]string {
	idx := t.columnIndex(column)
	if idx < 0 {
		return nil
	}

	var (
		count    int
		sum      float64
		min, max float64
	)
	for _, row := range t.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			continue
		}
		if count == 0 || v < min {
			min = v
		}
		if count == 0 || v > max {
			max = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}

	return []map[string]string{{
		"column":  column,
		"count":   strconv.Itoa(count),
		"average": formatFloat(sum / float64(count)),
		"sum":     formatFloat(sum),
		"minimum": formatFloat(min),
		"maximum": formatFloat(max),
	}}
}

// runTopN sorts rows by the numeric value of a column. Rows that do not
// parse sort last.
func runTopN(t Table, column string, descending bool) []map[string]string {
	idx := t.columnIndex(column)
	if idx < 0 || len(t.Rows) == 0 {
		return nil
	}

	type ranked struct {
		rowIdx  int
		value   float64
		numeric bool
	}
	order := make([]ranked, len(t.Rows))
	for i, row := range t.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		order[i] = ranked{rowIdx: i, value: v, numeric: err == nil}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.numeric != b.numeric {
			return a.numeric
		}
		if descending {
			return a.value > b.value
		}
		return a.value < b.value
	})

	limit := groupLimit
	if limit > len(order) {
		limit = len(order)
	}
	out := make([]map[string]string, 0, limit)
	for _, r := range order[:limit] {
		out = append(out, t.RowMap(r.rowIdx))
	}
	return out
}

func runDistinct(t Table, column string) []map[string]string {
	idx := t.columnIndex(column)
	if idx < 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var values []string
	for _, row := range t.Rows {
		if _, ok := seen[row[idx]]; ok {
			continue
		}
		seen[row[idx]] = struct{}{}
		values = append(values, row[idx])
	}
	sort.Strings(values)

	out := make([]map[string]string, len(values))
	for i, v := range values {
		out[i] = map[string]string{column: v}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
