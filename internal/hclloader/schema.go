package hclloader

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a project file may hold.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Graphs   []*graphBlock   `hcl:"graph,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type projectBlock struct {
	ID          string `hcl:"id,label"`
	Title       string `hcl:"title,optional"`
	Description string `hcl:"description,optional"`
	Main        string `hcl:"main,optional"`
}

type graphBlock struct {
	ID          string             `hcl:"id,label"`
	Name        string             `hcl:"name,optional"`
	Description string             `hcl:"description,optional"`
	Nodes       []*nodeBlock       `hcl:"node,block"`
	Connections []*connectionBlock `hcl:"connection,block"`
	Outputs     []string           `hcl:"outputs,optional"`
}

type nodeBlock struct {
	ID          string         `hcl:"id,label"`
	Kind        string         `hcl:"kind"`
	Title       string         `hcl:"title,optional"`
	Config      hcl.Expression `hcl:"config,optional"`
	Disabled    bool           `hcl:"disabled,optional"`
	SplitRun    bool           `hcl:"split_run,optional"`
	SplitRunMax int            `hcl:"split_run_max,optional"`
}

type connectionBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}
