package hclloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/portref"
)

// DefaultProjectID names projects that declare no project block.
const DefaultProjectID = "default"

// ErrNoGraphs is returned when the given paths hold no graph blocks.
var ErrNoGraphs = errors.New("no graphs found")

// Load reads every given file, and every .hcl file below every given
// directory, into one project.
func Load(ctx context.Context, paths ...string) (*graph.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	b := newBuilder()
	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := b.add(file, f.Body); err != nil {
			return nil, err
		}
	}

	project, err := b.build()
	if err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "project", project.ID, "graphs", len(project.Graphs))
	return project, nil
}

// Parse reads a single in-memory HCL document into a project.
func Parse(filename string, src []byte) (*graph.Project, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	b := newBuilder()
	if err := b.add(filename, f.Body); err != nil {
		return nil, err
	}
	return b.build()
}

// findFiles expands directories with a **/*.hcl glob. Explicit files are
// kept whatever their extension.
func findFiles(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(path), "**/*.hcl")
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(filepath.Join(path, filepath.FromSlash(m)))
		}
	}
	return out, nil
}

type builder struct {
	project *projectBlock
	graphs  []*graph.Graph
	seen    map[graph.GraphID]string
}

func newBuilder() *builder {
	return &builder{seen: make(map[graph.GraphID]string)}
}

func (b *builder) add(file string, body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	for _, p := range root.Projects {
		if b.project != nil {
			return fmt.Errorf("%s: project %q already declared as %q", file, p.ID, b.project.ID)
		}
		b.project = p
	}
	for _, gb := range root.Graphs {
		id := graph.GraphID(gb.ID)
		if prev, dup := b.seen[id]; dup {
			return fmt.Errorf("%s: duplicate graph %q, first declared in %s", file, gb.ID, prev)
		}
		b.seen[id] = file
		g, err := translateGraph(gb)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		b.graphs = append(b.graphs, g)
	}
	return nil
}

func (b *builder) build() (*graph.Project, error) {
	if len(b.graphs) == 0 {
		return nil, ErrNoGraphs
	}
	id := DefaultProjectID
	if b.project != nil {
		id = b.project.ID
	}
	project := graph.NewProject(id, b.graphs...)
	if b.project != nil {
		project.Title = b.project.Title
		project.Description = b.project.Description
		if b.project.Main != "" {
			main, err := project.Lookup(b.project.Main)
			if err != nil {
				return nil, fmt.Errorf("project %q main graph: %w", id, err)
			}
			project.MainGraphID = main.ID
		}
	}
	return project, nil
}

func translateGraph(gb *graphBlock) (*graph.Graph, error) {
	g := &graph.Graph{ID: graph.GraphID(gb.ID), Name: gb.Name, Description: gb.Description}
	if g.Name == "" {
		g.Name = gb.ID
	}

	for _, nb := range gb.Nodes {
		cfg, err := decodeConfig(nb.Config)
		if err != nil {
			return nil, fmt.Errorf("graph %q node %q config: %w", gb.ID, nb.ID, err)
		}
		g.Nodes = append(g.Nodes, &graph.Node{
			ID:          graph.NodeID(nb.ID),
			Kind:        nb.Kind,
			Title:       nb.Title,
			Config:      cfg,
			Disabled:    nb.Disabled,
			SplitRun:    nb.SplitRun,
			SplitRunMax: nb.SplitRunMax,
		})
	}

	for _, cb := range gb.Connections {
		from, err := portref.Parse(cb.From)
		if err != nil {
			return nil, fmt.Errorf("graph %q connection from: %w", gb.ID, err)
		}
		to, err := portref.Parse(cb.To)
		if err != nil {
			return nil, fmt.Errorf("graph %q connection to: %w", gb.ID, err)
		}
		g.Connections = append(g.Connections, graph.Connection{
			OutputNodeID: graph.NodeID(from.Node), OutputID: graph.PortID(from.Port),
			InputNodeID: graph.NodeID(to.Node), InputID: graph.PortID(to.Port),
		})
	}

	for _, raw := range gb.Outputs {
		ref, err := portref.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("graph %q outputs: %w", gb.ID, err)
		}
		g.Outputs = append(g.Outputs, ref)
	}
	return g, nil
}
