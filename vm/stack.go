package vm

import (
	"fmt"
)

// Stack is a LIFO of cells. A zero depth means the stack grows without
// bound.
type Stack struct {
	data []int32

	depth int
}

type StackOpt func(*Stack) *Stack

func MaxStack(max int) StackOpt {
	return func(s *Stack) *Stack {
		s.depth = max
		return s
	}
}

func NewStack(opts ...StackOpt) *Stack {
	s := &Stack{
		data: make([]int32, 0, 64),
	}
	for _, opt := range opts {
		s = opt(s)
	}
	return s
}

func (s *Stack) Push(v int32) error {
	if s.depth > 0 && len(s.data) == s.depth {
		return fmt.Errorf("push %d at depth %d: %w", v, s.depth, ErrStackOverflow)
	}
	s.data = append(s.data, v)
	return nil
}

// Pop returns errStackEmpty on an empty stack; the VM translates it into
// the underflow kind of the stack it popped.
func (s *Stack) Pop() (int32, error) {
	if s.Empty() {
		return 0, errStackEmpty
	}
	top := len(s.data) - 1
	v := s.data[top]
	s.data = s.data[:top]
	return v, nil
}

func (s *Stack) Empty() bool {
	return len(s.data) == 0
}

func (s *Stack) Len() int {
	return len(s.data)
}

func (s *Stack) Peek() (int32, error) {
	return s.read(s.Len() - 1)
}

func (s *Stack) read(pos int) (int32, error) {
	if pos >= s.Len() || pos < 0 {
		return 0, fmt.Errorf("read out of range len %d, pos %d", s.Len(), pos)
	}
	return s.data[pos], nil
}

// Values returns a copy of the stack, bottom first.
func (s *Stack) Values() []int32 {
	out := make([]int32, len(s.data))
	copy(out, s.data)
	return out
}
