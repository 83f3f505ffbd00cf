package app

import (
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/modules/code"
	"github.com/specialistvlad/promptgridgo/modules/env_vars"
	"github.com/specialistvlad/promptgridgo/modules/external_call"
	"github.com/specialistvlad/promptgridgo/modules/extract"
	"github.com/specialistvlad/promptgridgo/modules/flow"
	"github.com/specialistvlad/promptgridgo/modules/graphio"
	"github.com/specialistvlad/promptgridgo/modules/http_call"
	"github.com/specialistvlad/promptgridgo/modules/interaction"
	"github.com/specialistvlad/promptgridgo/modules/native"
	"github.com/specialistvlad/promptgridgo/modules/print"
	"github.com/specialistvlad/promptgridgo/modules/values"
)

// CoreModules is the definitive list of all node kinds compiled into the
// promptgridgo binary.
var CoreModules = []registry.Module{
	&values.Module{},
	&flow.Module{},
	&graphio.Module{},
	&interaction.Module{},
	&http_call.Module{},
	&external_call.Module{},
	&extract.Module{},
	&code.Module{},
	&env_vars.Module{},
	&print.Module{},
	&native.Module{},
}
