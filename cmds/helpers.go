package cmds

// Var defines name to set the returned value, and "name." to reset it to zero.
func Var[T any](name string) *T {
	return VarDesc[T](name, "")
}

func VarDesc[T any](name string, desc string) *T {
	var value T
	Define(name, Func(func(v T) {
		value = v
	}).Desc(desc))
	var zero T
	Define(name+".", Func(func() {
		value = zero
	}).Desc(resetDesc(desc, name)))
	return &value
}

// Switch defines name to set the returned flag, and "!name" to clear it.
func Switch(name string) *bool {
	return SwitchDesc(name, "")
}

func SwitchDesc(name string, desc string) *bool {
	var value bool
	Define(name, Func(func() {
		value = true
	}).Desc(desc))
	Define("!"+name, Func(func() {
		value = false
	}).Desc(resetDesc(desc, name)))
	return &value
}

func resetDesc(desc string, name string) string {
	if desc == "" {
		return ""
	}
	return "reset " + name
}

// Collect defines name to append to the returned slice. It may be repeated.
func Collect[T any](name string) *[]T {
	var value []T
	Define(name, Func(func(v T) {
		value = append(value, v)
	}))
	return &value
}
