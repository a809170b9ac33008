package generators

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/nets"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Nets    nets.Module
	Logs    logs.Module
}
