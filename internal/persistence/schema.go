// Package persistence holds the activities table definition shared by every destination writer.
package persistence

import (
	"fmt"
	"strings"

	"example.com/runlog/internal/domain"
)

// Table is the destination table name.
const Table = "activities"

// ColumnType is the portable type of a column; each dialect maps it to SQL.
type ColumnType int

const (
	BigInt ColumnType = iota
	Integer
	Float
	Text
)

// Column describes one activities column.
type Column struct {
	Name string
	Type ColumnType
}

// Columns lists the activities columns in insert order. id is the primary key.
var Columns = []Column{
	{"id", BigInt},
	{"name", Text},
	{"distance_meters", Float},
	{"distance_miles", Float},
	{"moving_time", Integer},
	{"elapsed_time", Integer},
	{"moving_time_min", Float},
	{"elapsed_time_min", Float},
	{"total_elevation_gain", Float},
	{"sport_type", Text},
	{"start_date", Text},
	{"start_date_local", Text},
	{"average_speed", Float},
	{"average_pace_min_per_mile", Float},
	{"max_speed", Float},
	{"max_pace_min_per_mile", Float},
	{"average_heartrate", Float},
	{"race", Integer},
}

// ColumnNames returns the column names in insert order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Values returns the row for a in Columns order. Nil pointers stay nil and are bound as NULL.
func Values(a domain.Activity) []any {
	return []any{
		a.ID,
		a.Name,
		a.DistanceMeters,
		a.DistanceMiles,
		a.MovingTime,
		a.ElapsedTime,
		a.MovingTimeMin,
		a.ElapsedTimeMin,
		a.TotalElevationGain,
		a.SportType,
		a.StartDate,
		a.StartDateLocal,
		a.AverageSpeed,
		a.AveragePaceMinPerMile,
		a.MaxSpeed,
		a.MaxPaceMinPerMile,
		a.AverageHeartrate,
		a.Race,
	}
}

// Dialect carries the SQL differences between destination engines.
type Dialect struct {
	Name  string
	Types map[ColumnType]string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Upsert renders the conflict clause appended to a multi-row insert for keyed merges.
	Upsert func(cols []string) string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Types:       map[ColumnType]string{BigInt: "BIGINT", Integer: "INTEGER", Float: "DOUBLE PRECISION", Text: "TEXT"},
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Upsert:      excludedUpsert("EXCLUDED"),
	}
	MySQL = Dialect{
		Name:        "mysql",
		Types:       map[ColumnType]string{BigInt: "BIGINT", Integer: "INT", Float: "DOUBLE", Text: "TEXT"},
		Placeholder: func(int) string { return "?" },
		Upsert: func(cols []string) string {
			sets := make([]string, 0, len(cols))
			for _, c := range cols {
				if c == "id" {
					continue
				}
				sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
			}
			return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
		},
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Types:       map[ColumnType]string{BigInt: "INTEGER", Integer: "INTEGER", Float: "REAL", Text: "TEXT"},
		Placeholder: func(int) string { return "?" },
		Upsert:      excludedUpsert("excluded"),
	}
)

func excludedUpsert(alias string) func([]string) string {
	return func(cols []string) string {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			if c == "id" {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = %s.%s", c, alias, c))
		}
		return " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
	}
}

// CreateTable renders the idempotent DDL for the activities table.
func (d Dialect) CreateTable() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(Table)
	b.WriteString(" (\n")
	for i, c := range Columns {
		b.WriteString("    ")
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(d.Types[c.Type])
		if c.Name == "id" {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// InsertRows renders a multi-row INSERT for rows records, optionally as a keyed merge.
func (d Dialect) InsertRows(rows int, merge bool) string {
	cols := ColumnNames()
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Table, strings.Join(cols, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteString(")")
	}
	if merge {
		b.WriteString(d.Upsert(cols))
	}
	return b.String()
}

// DeleteAll renders the statement that empties the table before a replace load.
func (d Dialect) DeleteAll() string {
	return "DELETE FROM " + Table
}

// Chunks splits rows into slices of at most size elements.
func Chunks(rows []domain.Activity, size int) [][]domain.Activity {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]domain.Activity
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
