// Package stats counts entity mentions per category and writes the ranked
// frequency tables to a workbook.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brunobiangulo/bioextract/entity"
)

// Row is one ranked entry of a frequency table.
type Row struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Report is the frequency table of one category.
type Report struct {
	Category      entity.Category `json:"category"`
	Rows          []Row           `json:"rows"`
	Unique        int             `json:"unique"`
	TotalMentions int             `json:"total_mentions"`
}

// Aggregate counts every token occurrence in values. Repeats within one
// cell count individually. Rows are sorted by count descending, then by
// lower-cased label, then by label.
func Aggregate(c entity.Category, values []string, canon *entity.Canonicalizer) Report {
	tally := entity.NewTally(canon)
	for _, v := range values {
		tally.AddCell(v)
	}

	keys := tally.Keys()
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Row{Label: tally.Label(k), Count: tally.Count(k)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		li, lj := strings.ToLower(rows[i].Label), strings.ToLower(rows[j].Label)
		if li != lj {
			return li < lj
		}
		return rows[i].Label < rows[j].Label
	})

	return Report{
		Category:      c,
		Rows:          rows,
		Unique:        tally.Unique(),
		TotalMentions: tally.Total(),
	}
}

// Summary renders the unique count of every category on one line.
// Categories without a report count as zero.
func Summary(reports []Report) string {
	unique := make(map[entity.Category]int, len(reports))
	for _, r := range reports {
		unique[r.Category] = r.Unique
	}
	parts := make([]string, 0, len(entity.Categories))
	for _, c := range entity.Categories {
		parts = append(parts, fmt.Sprintf("%s: %d", c, unique[c]))
	}
	return "Number of Unique " + strings.Join(parts, ", ")
}
