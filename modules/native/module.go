// Package native provides the file system node kinds. They go through the
// run's native provider and fail when the host grants no native access.
package native

import (
	"context"
	"fmt"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers readDirectory, readFile and writeFile.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "readDirectory", Title: "Read Directory", Group: "Native", Factory: newReadDirectory})
	r.Register(registry.Definition{Kind: "readFile", Title: "Read File", Group: "Native", Factory: newReadFile})
	r.Register(registry.Definition{Kind: "writeFile", Title: "Write File", Group: "Native", Factory: newWriteFile})
}

func nativeAPI(rc node.RunContext) (nativeapi.API, error) {
	api := rc.Native()
	if api == nil {
		return nil, runerr.Unsupported("native file system access")
	}
	return api, nil
}

func optionalPort(cfg node.Config, id string, kind datavalue.Kind) []node.PortDescriptor {
	if !cfg.UseInput(id) {
		return nil
	}
	return []node.PortDescriptor{{ID: graphPort(id), Title: id, DataType: kind}}
}

type readDirectoryNode struct {
	node.Ports
	cfg node.Config
}

func newReadDirectory(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	var in []node.PortDescriptor
	in = append(in, optionalPort(cfg, "path", datavalue.String)...)
	in = append(in, optionalPort(cfg, "recursive", datavalue.Boolean)...)
	in = append(in, optionalPort(cfg, "includeDirectories", datavalue.Boolean)...)
	in = append(in, optionalPort(cfg, "filterGlobs", datavalue.ArrayOf(datavalue.String))...)
	in = append(in, optionalPort(cfg, "relative", datavalue.Boolean)...)
	return &readDirectoryNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "paths", Title: "Paths", DataType: datavalue.ArrayOf(datavalue.String)}}},
		cfg:   cfg,
	}, nil
}

func (r *readDirectoryNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	api, err := nativeAPI(rc)
	if err != nil {
		return node.Outcome{}, err
	}
	path := datavalue.AsString(node.InputOr(r.cfg, in, "path", "path", datavalue.String))
	opts := nativeapi.ReadDirOptions{
		Recursive:          datavalue.AsBool(node.InputOr(r.cfg, in, "recursive", "recursive", datavalue.Boolean)),
		IncludeDirectories: datavalue.AsBool(node.InputOr(r.cfg, in, "includeDirectories", "includeDirectories", datavalue.Boolean)),
		Relative:           datavalue.AsBool(node.InputOr(r.cfg, in, "relative", "relative", datavalue.Boolean)),
	}
	for _, g := range datavalue.Items(node.InputOr(r.cfg, in, "filterGlobs", "filterGlobs", datavalue.ArrayOf(datavalue.String))) {
		if s := datavalue.AsString(g); s != "" {
			opts.FilterGlobs = append(opts.FilterGlobs, s)
		}
	}

	paths, err := api.ReadDir(ctx, path, opts)
	if err != nil {
		return node.Outcome{}, err
	}
	ctxlog.FromContext(ctx).Debug("Read directory", "path", path, "entries", len(paths))
	items := make([]any, len(paths))
	for i, p := range paths {
		items[i] = p
	}
	return node.Succeed(node.Outputs{"paths": datavalue.Array(datavalue.String, items)}), nil
}

type readFileNode struct {
	node.Ports
	cfg node.Config
}

func newReadFile(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	return &readFileNode{
		Ports: node.Ports{
			In:  optionalPort(cfg, "path", datavalue.String),
			Out: []node.PortDescriptor{{ID: "content", Title: "Content", DataType: datavalue.String}},
		},
		cfg: cfg,
	}, nil
}

func (r *readFileNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	api, err := nativeAPI(rc)
	if err != nil {
		return node.Outcome{}, err
	}
	path := datavalue.AsString(node.InputOr(r.cfg, in, "path", "path", datavalue.String))
	if path == "" {
		return node.Outcome{}, fmt.Errorf("readFile: path is required")
	}
	content, err := api.ReadTextFile(ctx, path)
	if err != nil {
		return node.Outcome{}, err
	}
	return node.Succeed(node.Outputs{"content": datavalue.Str(content)}), nil
}

type writeFileNode struct {
	node.Ports
	cfg node.Config
}

func newWriteFile(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := optionalPort(cfg, "path", datavalue.String)
	in = append(in, node.PortDescriptor{ID: "content", Title: "Content", DataType: datavalue.String, Required: true})
	return &writeFileNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "path", Title: "Path", DataType: datavalue.String}}},
		cfg:   cfg,
	}, nil
}

func (w *writeFileNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	api, err := nativeAPI(rc)
	if err != nil {
		return node.Outcome{}, err
	}
	path := datavalue.AsString(node.InputOr(w.cfg, in, "path", "path", datavalue.String))
	if path == "" {
		return node.Outcome{}, fmt.Errorf("writeFile: path is required")
	}
	content, _ := in.Get("content")
	if err := api.WriteTextFile(ctx, path, datavalue.AsString(content)); err != nil {
		return node.Outcome{}, err
	}
	ctxlog.FromContext(ctx).Debug("Wrote file", "path", path)
	return node.Succeed(node.Outputs{"path": datavalue.Str(path)}), nil
}

func graphPort(id string) graph.PortID { return graph.PortID(id) }
