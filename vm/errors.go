package vm

import (
	"errors"
	"fmt"
)

var (
	ErrIntegerLiteral       = errors.New("vm: integer literals are not supported")
	ErrUnknownInstruction   = errors.New("vm: unknown instruction")
	ErrDataStackUnderflow   = errors.New("vm: data stack underflow")
	ErrReturnStackUnderflow = errors.New("vm: return stack underflow")
	ErrStepLimitExceeded    = errors.New("vm: step limit exceeded")
	ErrStackOverflow        = errors.New("vm: stack overflow")
	ErrInput                = errors.New("vm: input failed")

	errStackEmpty = errors.New("stack empty")
)

// StepError locates a failure at the instruction that raised it.
type StepError struct {
	IP    int
	Token string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("ip %d '%s': %s", e.IP, e.Token, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
