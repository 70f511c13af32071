package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cardscan/pkg/catalog"
	"cardscan/pkg/scan"
	"cardscan/process/report"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func outcomeTable(outs []scan.Outcome) string {
	rows := make([][]string, 0, len(outs))
	for _, o := range outs {
		card, conf := "-", "-"
		if o.Record != nil {
			card = o.Record.Identifier + " " + o.Record.Name
		}
		if o.Confidence != nil {
			conf = strconv.FormatFloat(*o.Confidence, 'f', 1, 64)
		}
		method := string(o.Method)
		if method == "" {
			method = "-"
		}
		detail := string(o.Reason)
		if o.Match != nil && o.Match.Method != "" {
			detail = string(o.Match.Method)
		}
		rows = append(rows, []string{o.Source, string(o.State), method, card, conf, detail, o.Duration().Round(time.Millisecond).String()})
	}
	return renderTable(
		[]string{"Source", "State", "Path", "Card", "Conf", "Detail", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
}

func tallyTable(s scan.TallySnapshot) string {
	rows := [][]string{
		{"scans", strconv.FormatInt(s.Scans, 10)},
		{"accepted (free)", strconv.FormatInt(s.FreeAccepted, 10)},
		{"accepted (paid)", strconv.FormatInt(s.PaidAccepted, 10)},
		{"paid calls", strconv.FormatInt(s.PaidCalls, 10)},
		{"cost units", strconv.FormatInt(s.CostUnits, 10)},
	}
	for _, reason := range slices.Sorted(maps.Keys(s.Failed)) {
		rows = append(rows, []string{"failed: " + string(reason), strconv.FormatInt(s.Failed[reason], 10)})
	}
	return renderTable([]string{"Counter", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func matchTable(m catalog.Match) string {
	rows := make([][]string, 0, len(m.Candidates)+1)
	if m.Record != nil && len(m.Candidates) == 0 {
		rows = append(rows, []string{m.Record.Identifier, m.Record.Name, "0", "1.00"})
	}
	for _, c := range m.Candidates {
		rows = append(rows, []string{c.Record.Identifier, c.Record.Name, strconv.Itoa(c.Distance), fmt.Sprintf("%.2f", c.Score)})
	}
	return renderTable([]string{"Identifier", "Name", "Distance", "Score"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight})
}

func reportTables(r report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s records=%d identifiers=%d missing_name=%d\n", r.Source, r.Records, r.Identifiers, r.MissingName)

	sets := make([][]string, 0, len(r.Sets))
	for _, s := range r.Sets {
		sets = append(sets, []string{s.Set, strconv.Itoa(s.Count)})
	}
	b.WriteString(renderTable([]string{"Set", "Records"}, sets, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	if len(r.Duplicates) > 0 {
		dups := make([][]string, 0, len(r.Duplicates))
		for _, d := range r.Duplicates {
			dups = append(dups, []string{d.Identifier, strings.Join(d.Names, "; ")})
		}
		b.WriteString(renderTable([]string{"Duplicate", "Names"}, dups, nil))
		b.WriteString("\n")
	}
	if len(r.Collisions) > 0 {
		cols := make([][]string, 0, len(r.Collisions))
		for _, c := range r.Collisions {
			cols = append(cols, []string{c.A, c.B, strconv.Itoa(c.Distance)})
		}
		b.WriteString(renderTable([]string{"Identifier", "Confusable with", "Distance"}, cols,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}
	return b.String()
}
