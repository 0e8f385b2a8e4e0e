package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-docquery/record"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func (a *app) newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	tw.SetStyle(table.StyleLight)
	return tw
}

// printRecords renders records as a table with the id first and the
// remaining fields sorted, or as indented JSON.
func (a *app) printRecords(records []record.Record) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	columns := fieldColumns(records)
	header := table.Row{record.IDField}
	for _, c := range columns {
		header = append(header, c)
	}

	tw := a.newTable()
	tw.AppendHeader(header)
	for _, r := range records {
		row := table.Row{r.ID()}
		for _, c := range columns {
			v, ok := r[c]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}

func fieldColumns(records []record.Record) []string {
	seen := map[string]bool{}
	var columns []string
	for _, r := range records {
		for k := range r {
			if k == record.IDField || seen[k] {
				continue
			}
			seen[k] = true
			columns = append(columns, k)
		}
	}
	sort.Strings(columns)
	return columns
}
