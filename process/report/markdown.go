package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
)

// WriteMarkdown renders the report as GitHub flavored markdown.
func WriteMarkdown(w io.Writer, r Report) error {
	md := markdown.NewMarkdown(w)
	md.H1("Catalog report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + r.Source + "`"},
			{"Records", strconv.Itoa(r.Records)},
			{"Distinct identifiers", strconv.Itoa(r.Identifiers)},
			{"Records without a name", strconv.Itoa(r.MissingName)},
		},
	})
	md.PlainText("")

	md.H2("Sets")
	rows := make([][]string, 0, len(r.Sets))
	for _, s := range r.Sets {
		rows = append(rows, []string{s.Set, strconv.Itoa(s.Count)})
	}
	md.Table(markdown.TableSet{Header: []string{"Set", "Records"}, Rows: rows})
	md.PlainText("")

	md.H2("Duplicate identifiers")
	if len(r.Duplicates) == 0 {
		md.Note("Every identifier is unique.")
	} else {
		items := make([]string, 0, len(r.Duplicates))
		for _, d := range r.Duplicates {
			items = append(items, "`"+d.Identifier+"`: "+strings.Join(d.Names, ", "))
		}
		md.Warningf("%d identifiers are shared; scans of them need a name hint to resolve.", len(r.Duplicates))
		md.BulletList(items...)
	}
	md.PlainText("")

	md.H2("Confusable identifiers")
	if len(r.Collisions) == 0 {
		md.Note("No identifier pairs within fuzzy range.")
	} else {
		rows = make([][]string, 0, len(r.Collisions))
		for _, c := range r.Collisions {
			rows = append(rows, []string{"`" + c.A + "`", "`" + c.B + "`", strconv.Itoa(c.Distance)})
		}
		md.Table(markdown.TableSet{Header: []string{"Identifier", "Confusable with", "Distance"}, Rows: rows})
	}
	return md.Build()
}
