package configs

import "errors"

// Configurable values can be read from a well-known cue key.
type Configurable interface {
	ConfigKey() string
}

// Lookup decodes the first value at T's config key.
func Lookup[T Configurable](loader Loader) (ret T, ok bool) {
	ok, err := assign(loader, ret.ConfigKey(), &ret)
	if err != nil {
		panic(err)
	}
	return ret, ok
}

// First decodes the first value at path, or returns the zero value when no file sets it.
// Type errors panic, since the schema has already been checked.
func First[T any](loader Loader, path string) (ret T) {
	if _, err := assign(loader, path, &ret); err != nil {
		panic(err)
	}
	return
}

func assign(loader Loader, path string, target any) (bool, error) {
	err := loader.AssignFirst(path, target)
	if errors.Is(err, ErrValueNotFound) {
		return false, nil
	}
	return err == nil, err
}
