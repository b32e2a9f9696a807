package graph

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

// visNode and visEdge are the vis-network data shapes.
type visNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

type visEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type pageData struct {
	Title string
	Nodes []visNode
	Edges []visEdge
}

var pageTmpl = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"></script>
<style>
body { margin: 0; background: #ffffff; }
#network { width: 100%; height: 750px; border: 1px solid lightgray; }
</style>
</head>
<body>
<div id="network"></div>
<script>
var nodes = new vis.DataSet({{.Nodes}});
var edges = new vis.DataSet({{.Edges}});
var options = {
  nodes: { font: { color: "black" } },
  physics: {
    solver: "barnesHut",
    barnesHut: { gravitationalConstant: -80000, centralGravity: 0.3, springLength: 250, springConstant: 0.001, damping: 0.09, avoidOverlap: 0 }
  },
  interaction: { hover: false, tooltipDelay: 999999 }
};
new vis.Network(document.getElementById("network"), { nodes: nodes, edges: edges }, options);
</script>
</body>
</html>
`))

// RenderHTML writes g as a self-contained vis-network page. Documents are
// light-blue boxes and entities light-green ellipses.
func RenderHTML(w io.Writer, g *Graph) error {
	data := pageData{
		Title: "Articles to " + g.Category.String(),
		Nodes: make([]visNode, 0, len(g.Nodes)),
		Edges: make([]visEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		vn := visNode{ID: n.ID, Label: n.Label, Shape: "ellipse", Color: "lightgreen"}
		if n.Kind == NodeDocument {
			vn.Shape, vn.Color = "box", "lightblue"
		}
		data.Nodes = append(data.Nodes, vn)
	}
	for _, e := range g.Edges {
		data.Edges = append(data.Edges, visEdge(e))
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering %s graph: %w", g.Category, err)
	}
	return nil
}

// WriteHTML renders g into dir/OutputFile(category) and returns the path.
func WriteHTML(dir string, g *Graph) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating graph directory: %w", err)
	}
	path := filepath.Join(dir, OutputFile(g.Category))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating graph file: %w", err)
	}
	if err := RenderHTML(f, g); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing graph file: %w", err)
	}
	return path, nil
}
