package cmds

import (
	"fmt"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/reusee/taiplan/vars"
)

// Executor processes arguments in order. Each word names a command, which consumes its own arguments.
type Executor struct {
	commands map[string]*Command
}

func NewExecutor() *Executor {
	ret := &Executor{
		commands: make(map[string]*Command),
	}
	ret.Define("-h", Func(func() {
		ret.PrintUsage(os.Stdout)
		os.Exit(0)
	}).Desc("print this usage").Alias("help", "-help", "--help"))
	return ret
}

func (p *Executor) Define(name string, command *Command) {
	for _, n := range append([]string{name}, command.Aliases...) {
		if _, ok := p.commands[n]; ok {
			panic(fmt.Errorf("duplicated command %s", n))
		}
		p.commands[n] = command
	}
}

func (p *Executor) Execute(args []string) (err error) {
	commands := p.commands
	for len(args) > 0 {
		name := strings.TrimSpace(args[0])
		command, ok := commands[name]
		if !ok {
			return fmt.Errorf("unknown command: %s", name)
		}
		if command == nil {
			args = args[1:]
			continue
		}
		args, err = command.call(name, args[1:])
		if err != nil {
			return err
		}
		if len(command.Subs) > 0 {
			// sub commands are visible for the rest of the arguments
			commands = maps.Clone(commands)
			for sub, cmd := range command.Subs {
				if _, ok := commands[sub]; ok {
					return fmt.Errorf("duplicated sub command: %s %s", name, sub)
				}
				commands[sub] = cmd
			}
		}
	}
	return nil
}

func (p *Executor) MustExecute(args []string) {
	if err := p.Execute(args); err != nil {
		panic(err)
	}
}

var (
	errorType    = reflect.TypeFor[error]()
	durationType = reflect.TypeFor[time.Duration]()
)

// call fills the parameters of the command func from args and returns the unconsumed rest.
func (c *Command) call(name string, args []string) ([]string, error) {
	if !c.Func.IsValid() {
		return args, nil
	}
	fnType := c.Func.Type()
	in := make([]reflect.Value, fnType.NumIn())
	for i := range in {
		v, err := parseArg(fnType.In(i), args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		in[i] = v
		if len(args) > 0 {
			args = args[1:]
		}
	}
	if out := c.Func.Call(in); len(out) > 0 && !out[0].IsNil() {
		return nil, out[0].Interface().(error)
	}
	return args, nil
}

func parseArg(t reflect.Type, args []string) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		if len(args) == 0 {
			// optional
			return ptr, nil
		}
		elem, err := parseArg(t.Elem(), args)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	if len(args) == 0 {
		return reflect.Value{}, fmt.Errorf("expecting argument, got nothing")
	}

	ret := reflect.New(t).Elem()
	set := kindSetters[t.Kind()]
	if t == durationType {
		set = setDuration
	}
	if set == nil {
		return ret, fmt.Errorf("unsupported type: %v", t)
	}
	if err := set(ret, args[0]); err != nil {
		return ret, fmt.Errorf("convert %s to %v: %w", args[0], t, err)
	}
	return ret, nil
}

var kindSetters = map[reflect.Kind]func(reflect.Value, string) error{
	reflect.Bool: func(v reflect.Value, s string) error {
		v.SetBool(vars.StrToBool(s))
		return nil
	},
	reflect.String: func(v reflect.Value, s string) error {
		v.SetString(s)
		return nil
	},
}

func init() {
	for _, kind := range []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64} {
		kindSetters[kind] = func(v reflect.Value, s string) error {
			n, err := strconv.ParseInt(s, 10, v.Type().Bits())
			v.SetInt(n)
			return err
		}
	}
	for _, kind := range []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64} {
		kindSetters[kind] = func(v reflect.Value, s string) error {
			n, err := strconv.ParseUint(s, 10, v.Type().Bits())
			v.SetUint(n)
			return err
		}
	}
	for _, kind := range []reflect.Kind{reflect.Float32, reflect.Float64} {
		kindSetters[kind] = func(v reflect.Value, s string) error {
			f, err := strconv.ParseFloat(s, v.Type().Bits())
			v.SetFloat(f)
			return err
		}
	}
}

// setDuration accepts Go durations and bare numbers of seconds.
func setDuration(v reflect.Value, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, err2 := strconv.ParseFloat(s, 64)
		if err2 != nil {
			return err
		}
		d = time.Duration(secs * float64(time.Second))
	}
	v.SetInt(int64(d))
	return nil
}
