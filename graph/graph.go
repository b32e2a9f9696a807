// Package graph builds bipartite document-to-entity graphs from the
// extraction table and renders them as standalone HTML pages.
package graph

import (
	"strings"

	"github.com/brunobiangulo/bioextract/entity"
)

// Node kinds.
const (
	NodeDocument = "document"
	NodeEntity   = "entity"
)

// documentPrefix namespaces document node IDs.
const documentPrefix = "ARTICLE::"

// Document key modes.
const (
	KeyByTitle = "title"
	KeyByFile  = "file"
)

// Node is a document or entity vertex.
type Node struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
	// Degree is the number of edges touching the node.
	Degree int `json:"degree"`
}

// Edge links a document node to an entity node.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the bipartite graph for one category.
type Graph struct {
	Category entity.Category `json:"category"`
	Nodes    []Node          `json:"nodes"`
	Edges    []Edge          `json:"edges"`
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// IsEmpty reports whether the graph has no nodes.
func (g *Graph) IsEmpty() bool { return len(g.Nodes) == 0 }

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// DocumentID returns the node ID for a document key.
func DocumentID(key string) string {
	return documentPrefix + key
}

// EntityID returns the node ID for a canonical entity key.
func EntityID(c entity.Category, key string) string {
	return strings.ToUpper(string(c)) + "::" + key
}

// OutputFile returns the HTML file name for a category graph.
func OutputFile(c entity.Category) string {
	return "articles_to_" + c.Slug() + ".html"
}
