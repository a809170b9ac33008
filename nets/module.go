package nets

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Logs    logs.Module
}
