package generators

import (
	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/vars"
)

type GetDefaultGenerator func() (Generator, error)

func (Module) GetDefaultGenerator(
	name DefaultModelName,
	get GetGenerator,
) GetDefaultGenerator {
	return func() (Generator, error) {
		return get(string(name))
	}
}

var (
	defaultModelName = cmds.VarDesc[string]("-model", "model name, a built-in, a configured generator or ollama:NAME")
)

type DefaultModelName string

var _ configs.Configurable = DefaultModelName("")

func (DefaultModelName) ConfigKey() string {
	return "model"
}

func (Module) DefaultModelName(
	loader configs.Loader,
	fallback FallbackModelName,
	logger logs.Logger,
) (ret DefaultModelName) {
	defer func() {
		logger.Info("default model", "name", ret)
	}()
	configured, _ := configs.Lookup[DefaultModelName](loader)
	return vars.FirstNonZero(
		DefaultModelName(*defaultModelName),
		configs.First[DefaultModelName](loader, "model_name"),
		configured,
		DefaultModelName(fallback),
	)
}

type FallbackModelName string

func (Module) FallbackModelName() FallbackModelName {
	return "gemini-flash"
}
