package plans

// Stack holds ancestor cursors of nested plans. The last element is the nearest parent.
type Stack []Info

func (s Stack) Push(info Info) Stack {
	ret := make(Stack, len(s), len(s)+1)
	copy(ret, s)
	return append(ret, info)
}

// Pop returns the nearest parent and the remaining stack. ok is false on an empty stack.
func (s Stack) Pop() (info Info, rest Stack, ok bool) {
	if len(s) == 0 {
		return Info{}, s, false
	}
	return s[len(s)-1], s[:len(s)-1], true
}

func (s Stack) Depth() int {
	return len(s)
}
