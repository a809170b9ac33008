package agents

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/debugs"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/sandboxes"
	"github.com/reusee/taiplan/taiconfigs"
	"github.com/reusee/taiplan/traces"
)

type Module struct {
	dscope.Module
	Logs       logs.Module
	Oracles    oracles.Module
	Sandboxes  sandboxes.Module
	Traces     traces.Module
	TaiConfigs taiconfigs.Module
	Debugs     debugs.Module
}
