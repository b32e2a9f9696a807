package entity

import (
	"fmt"
	"strings"
)

// Category is one of the fixed biological entity classes.
type Category string

// Entity categories, in table column order.
const (
	Proteins Category = "Proteins"
	Genes    Category = "Genes"
	DNA      Category = "DNA"
	RNA      Category = "RNA"
	MethRNA  Category = "Meth-RNA"
)

// Categories lists every category in the order the table stores them.
var Categories = []Category{Proteins, Genes, DNA, RNA, MethRNA}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown entity category: %q", name)
}

// Slug returns a lower-case, underscore-separated form for file names.
func (c Category) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), "-", "_")
}

func (c Category) String() string { return string(c) }
