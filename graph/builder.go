package graph

import (
	"strings"

	"github.com/brunobiangulo/bioextract/entity"
	"github.com/brunobiangulo/bioextract/table"
)

// Builder turns table records into per-category bipartite graphs.
type Builder struct {
	canon       *entity.Canonicalizer
	documentKey string
}

// NewBuilder creates a Builder. documentKey is KeyByTitle or KeyByFile;
// anything else keys documents by title.
func NewBuilder(canon *entity.Canonicalizer, documentKey string) *Builder {
	if documentKey != KeyByFile {
		documentKey = KeyByTitle
	}
	return &Builder{canon: canon, documentKey: documentKey}
}

// Build creates the graph of category c. A document node is only added
// when the document has at least one entity in c, so the graph has no
// isolated documents. Rows with a blank title are skipped.
func (b *Builder) Build(records []table.Record, c entity.Category) *Graph {
	// Labels are fixed over the whole column before any node exists so a
	// node's label does not depend on row order.
	tally := entity.NewTally(b.canon)
	for _, r := range records {
		tally.AddCell(r.Cells[c])
	}

	g := &Graph{Category: c, Nodes: []Node{}, Edges: []Edge{}}
	nodeIdx := make(map[string]int)
	seenEdges := make(map[Edge]bool)

	addNode := func(n Node) {
		if _, ok := nodeIdx[n.ID]; ok {
			return
		}
		nodeIdx[n.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}

	for _, r := range records {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		keys := b.uniqueKeys(r.Cells[c])
		if len(keys) == 0 {
			continue
		}

		docID := DocumentID(b.docKey(r, title))
		addNode(Node{ID: docID, Kind: NodeDocument, Label: title})

		for _, key := range keys {
			entID := EntityID(c, key)
			addNode(Node{ID: entID, Kind: NodeEntity, Label: tally.Label(key)})

			e := Edge{From: docID, To: entID}
			if seenEdges[e] {
				continue
			}
			seenEdges[e] = true
			g.Edges = append(g.Edges, e)
			g.Nodes[nodeIdx[docID]].Degree++
			g.Nodes[nodeIdx[entID]].Degree++
		}
	}
	return g
}

// BuildAll builds one graph per category in table order.
func (b *Builder) BuildAll(records []table.Record) []*Graph {
	out := make([]*Graph, 0, len(entity.Categories))
	for _, c := range entity.Categories {
		out = append(out, b.Build(records, c))
	}
	return out
}

func (b *Builder) docKey(r table.Record, title string) string {
	if b.documentKey == KeyByFile {
		if f := strings.TrimSpace(r.FileName); f != "" {
			return f
		}
	}
	return title
}

// uniqueKeys returns the distinct canonical keys of a cell in first-seen
// order.
func (b *Builder) uniqueKeys(cell string) []string {
	tokens := b.canon.Tokens(cell)
	seen := make(map[string]bool, len(tokens))
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		k := b.canon.Key(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
