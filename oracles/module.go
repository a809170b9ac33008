package oracles

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/generators"
	"github.com/reusee/taiplan/logs"
)

type Module struct {
	dscope.Module
	Generators generators.Module
	Logs       logs.Module
}
