package generators

type State interface {
	Contents() []*Content
	AppendContent(*Content) (State, error)
	SystemPrompt() string
	Flush() (State, error)
	Unwrap() State
}

// As finds the first state of type T in the decorator chain.
func As[T State](state State) (ret T, ok bool) {
	for state != nil {
		if ret, ok = state.(T); ok {
			return
		}
		state = state.Unwrap()
	}
	return
}
