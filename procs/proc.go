package procs

// Proc is one unit of work. It returns the continuation to run next, or nil when finished.
type Proc[C any] interface {
	Run(ctx C) (Proc[C], error)
}

type Func[C any] func(ctx C) (Proc[C], error)

var _ Proc[any] = Func[any](nil)

func (f Func[C]) Run(ctx C) (Proc[C], error) {
	return f(ctx)
}

// Drive runs proc and every continuation it returns in a loop, so chains of any length use constant stack.
func Drive[C any](ctx C, proc Proc[C]) (steps int, err error) {
	for proc != nil {
		proc, err = proc.Run(ctx)
		steps++
		if err != nil {
			return steps, err
		}
	}
	return steps, nil
}
