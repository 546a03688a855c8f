package cypher

import (
	"maps"
	"strconv"
	"strings"

	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/sequence"
)

// CountAlias is the column of a Plan's count statement.
const CountAlias = "count"

const countReturn = "RETURN count(*) AS " + CountAlias

// IsCount reports whether stmt is the count statement of a Plan.
func IsCount(stmt Statement) bool {
	return strings.HasSuffix(stmt.Cypher, countReturn)
}

// Plan is a compiled mutation that may touch any number of rows.
//
// A mutation that writes change log entries for every matched row cannot
// number them at compile time. Its plan carries a Count statement; the
// caller runs it and hands the result to Bind, which reserves numbers and
// GUIDs for exactly that many rows. The mutation only takes the counted
// rows: a row that starts matching between the two round trips is left
// untouched instead of being logged under a number nobody reserved.
//
// A plan without a Count is ready as compiled; Bind returns it unchanged.
type Plan struct {
	Count *Statement

	stmt     Statement
	log      *ChangeLog
	capacity string
}

// Ready wraps a statement that needs no count.
func Ready(stmt Statement) *Plan {
	return &Plan{stmt: stmt}
}

// PerRow is the number of change log entries each matched row writes.
func (p *Plan) PerRow() int {
	if p.log == nil || !p.log.rowWise {
		return 0
	}
	return len(p.log.frags)
}

// Bind returns the statement to run for rows matched rows. For a row-wise
// plan it takes rows*PerRow numbers from the sequence in one go, so the
// entries of row r get numbers after every entry of row r-1, and generates
// one GUID per entry (and per created entity).
func (p *Plan) Bind(rows int64) (Statement, error) {
	if p.Count == nil {
		return p.stmt, nil
	}
	rows = max(rows, 0)
	width := int64(p.PerRow())

	numbers, err := sequence.Take(p.log.seq, rows*width)
	if err != nil {
		return Statement{}, &SequenceError{Err: err}
	}

	numberRows := make([]any, rows)
	guidRows := make([]any, rows)
	var items []string
	for r := int64(0); r < rows; r++ {
		if p.log.itemsRef != "" {
			items = append(items, p.log.guids.Generate())
		}
		numberRows[r] = numbers[r*width : (r+1)*width]
		guids := make([]string, width)
		for j := range guids {
			guids[j] = p.log.guids.Generate()
		}
		guidRows[r] = guids
	}

	params := maps.Clone(p.stmt.Params)
	bind := func(ref string, v any) {
		params[strings.TrimPrefix(ref, "$")] = v
	}
	bind(p.capacity, rows)
	bind(p.log.numbersRef, numberRows)
	bind(p.log.guidsRef, guidRows)
	if p.log.itemsRef != "" {
		bind(p.log.itemsRef, items)
	}

	return Statement{Cypher: p.stmt.Cypher, Params: params, Numbers: numbers}, nil
}

// rowWise assembles a plan whose log writes entries per matched row.
//
// match finds the rows and vars names what each row carries. The mutation
// collects the rows, keeps at most the counted number and unwinds them with
// their index in row; mutate then runs once per row.
func rowWise(b *Builder, log *ChangeLog, match []string, vars []descriptor.Slot, mutate ...string) *Plan {
	count := b.statement(nil, append(append([]string(nil), match...), countReturn)...)
	count.Params = b.boundParams()

	capacity := b.Placeholder()
	clauses := append(append([]string(nil), match...), unwindRows(capacity, vars))
	stmt := b.statement(nil, append(clauses, mutate...)...)
	return &Plan{Count: &count, stmt: stmt, log: log, capacity: capacity}
}

// unwindRows renders
//
//	WITH collect([a, b])[..$cap] AS matched
//	UNWIND range(0, size(matched) - 1) AS row
//	WITH matched[row][0] AS a, matched[row][1] AS b, row
//
// A single variable is collected bare.
func unwindRows(capacity string, vars []descriptor.Slot) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = string(v)
	}

	collected := names[0]
	if len(names) > 1 {
		collected = "[" + strings.Join(names, ", ") + "]"
	}

	rebind := make([]string, 0, len(names)+1)
	for i, name := range names {
		if len(names) == 1 {
			rebind = append(rebind, "matched["+rowVar+"] AS "+name)
		} else {
			rebind = append(rebind, "matched["+rowVar+"]["+strconv.Itoa(i)+"] AS "+name)
		}
	}
	rebind = append(rebind, rowVar)

	return "WITH collect(" + collected + ")[.." + capacity + "] AS matched" +
		" UNWIND range(0, size(matched) - 1) AS " + rowVar +
		" WITH " + strings.Join(rebind, ", ")
}
