package vm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/KamikazeJones/tiny-bytecode/program"
	"go.uber.org/zap"
)

const DefaultStepLimit = 100000

// StepResult tells the runner where to continue. Without Jump the runner
// advances to the next instruction.
type StepResult struct {
	NextIP int
	Jump   bool
	Halted bool
}

var (
	advance = StepResult{}
	halt    = StepResult{Halted: true}
)

func jump(ip int) StepResult {
	return StepResult{NextIP: ip, Jump: true}
}

type VM struct {
	prog *program.Program

	data   *Stack
	rstack *Stack
	mem    *Memory

	output OutputFunc
	input  InputFunc

	stepLimit int
	stackOpts []StackOpt
	// steps taken by the most recent run
	steps int

	logger *zap.Logger
}

type VMOpt func(*VM) *VM

func LoggerOpt(l *zap.Logger) VMOpt {
	return func(vm *VM) *VM {
		vm.logger = l
		return vm
	}
}

func OutputOpt(f OutputFunc) VMOpt {
	return func(vm *VM) *VM {
		if f != nil {
			vm.output = f
		}
		return vm
	}
}

func InputOpt(f InputFunc) VMOpt {
	return func(vm *VM) *VM {
		if f != nil {
			vm.input = f
		}
		return vm
	}
}

// StepLimitOpt sets the ceiling used when Run is given no explicit one.
func StepLimitOpt(n int) VMOpt {
	return func(vm *VM) *VM {
		if n > 0 {
			vm.stepLimit = n
		}
		return vm
	}
}

// StackOpts applies to both the data and the return stack.
func StackOpts(opts ...StackOpt) VMOpt {
	return func(vm *VM) *VM {
		vm.stackOpts = append(vm.stackOpts, opts...)
		return vm
	}
}

// NewVM returns a VM with empty stacks and memory and no program loaded.
func NewVM(opts ...VMOpt) *VM {
	vm := &VM{
		prog:      &program.Program{Labels: map[string]int{}},
		mem:       NewMemory(),
		output:    discardOutput,
		input:     noInput,
		stepLimit: DefaultStepLimit,
		logger:    zap.L(),
	}

	for _, opt := range opts {
		vm = opt(vm)
	}

	vm.data = NewStack(vm.stackOpts...)
	vm.rstack = NewStack(vm.stackOpts...)
	vm.logger = vm.logger.Named("vm")

	return vm
}

// Load replaces the program. Stacks and memory are left alone.
func (vm *VM) Load(src string) error {
	prog, err := program.Parse(src)
	if err != nil {
		return fmt.Errorf("vm load: %w", err)
	}
	vm.LoadProgram(prog)
	return nil
}

func (vm *VM) LoadProgram(prog *program.Program) {
	vm.prog = prog
	vm.logger.Debug("program loaded",
		zap.Int("instructions", prog.Len()),
		zap.Int("labels", len(prog.Labels)),
	)
}

// Run executes from address 0 until the program halts or maxSteps steps
// have been taken. A non-positive maxSteps uses the VM's step limit.
func (vm *VM) Run(ctx context.Context, maxSteps int) error {
	if maxSteps <= 0 {
		maxSteps = vm.stepLimit
	}

	ip := 0
	vm.steps = 0
	for vm.steps < maxSteps {
		res, err := vm.Step(ctx, ip)
		if err != nil {
			return fmt.Errorf("vm run: %w", err)
		}
		if res.Halted {
			vm.logger.Debug("halted",
				zap.Int("ip", ip),
				zap.Int("steps", vm.steps),
			)
			return nil
		}
		if res.Jump {
			ip = res.NextIP
		} else {
			ip++
		}
		vm.steps++
	}

	return fmt.Errorf("vm run: after %d steps: %w", maxSteps, ErrStepLimitExceeded)
}

func (vm *VM) RunText(ctx context.Context, src string, maxSteps int) error {
	if err := vm.Load(src); err != nil {
		return err
	}
	return vm.Run(ctx, maxSteps)
}

// Step executes the instruction at ip. An ip outside the program halts
// without touching any state.
func (vm *VM) Step(ctx context.Context, ip int) (StepResult, error) {
	if ip < 0 || ip >= vm.prog.Len() {
		return halt, nil
	}
	inst := vm.prog.Instructions[ip]

	if ce := vm.logger.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(
			zap.Int("ip", ip),
			zap.Stringer("token", inst),
			zap.Int32s("data", vm.data.Values()),
			zap.Int32s("return", vm.rstack.Values()),
		)
	}

	res, err := vm.exec(ctx, ip, inst)
	if err != nil {
		return res, &StepError{IP: ip, Token: inst.String(), Err: err}
	}
	return res, nil
}

func (vm *VM) exec(ctx context.Context, ip int, inst program.Instruction) (StepResult, error) {
	if inst.Kind == program.KindAddress {
		return advance, vm.push(inst.Addr)
	}

	tok := inst.Text
	if isIntegerLiteral(tok) {
		return advance, ErrIntegerLiteral
	}

	op, ok := decodeOpcode(tok)
	if !ok {
		return advance, ErrUnknownInstruction
	}

	switch op {
	case OpAdd, OpSub:
		a, err := vm.pop()
		if err != nil {
			return advance, err
		}
		b, err := vm.pop()
		if err != nil {
			return advance, err
		}
		if op == OpAdd {
			return advance, vm.push(b + a)
		}
		return advance, vm.push(b - a)

	case OpDouble:
		a, err := vm.pop()
		if err != nil {
			return advance, err
		}
		return advance, vm.push(a << 1)

	case OpHalve:
		a, err := vm.pop()
		if err != nil {
			return advance, err
		}
		// arithmetic shift keeps the sign
		return advance, vm.push(a >> 1)

	case OpLoad:
		addr, err := vm.pop()
		if err != nil {
			return advance, err
		}
		return advance, vm.push(vm.mem.Load(addr))

	case OpStore:
		val, err := vm.pop()
		if err != nil {
			return advance, err
		}
		addr, err := vm.pop()
		if err != nil {
			return advance, err
		}
		vm.mem.Store(addr, val)
		return advance, nil

	case OpCall:
		addr, err := vm.pop()
		if err != nil {
			return advance, err
		}
		if err := vm.rstack.Push(int32(ip + 1)); err != nil {
			return advance, err
		}
		return jump(int(addr)), nil

	case OpReturn:
		ret, err := vm.rpop()
		if err != nil {
			return advance, err
		}
		return jump(int(ret)), nil

	case OpToR:
		v, err := vm.pop()
		if err != nil {
			return advance, err
		}
		return advance, vm.rstack.Push(v)

	case OpFromR:
		v, err := vm.rpop()
		if err != nil {
			return advance, err
		}
		return advance, vm.push(v)

	case OpBranch:
		addr, err := vm.pop()
		if err != nil {
			return advance, err
		}
		cond, err := vm.pop()
		if err != nil {
			return advance, err
		}
		// only strictly positive values are true
		if cond > 0 {
			return jump(int(addr)), nil
		}
		return advance, nil

	case OpHalt:
		return halt, nil

	case OpEmit:
		v, err := vm.pop()
		if err != nil {
			return advance, err
		}
		if err := vm.output(byte(v & 0xFF)); err != nil {
			vm.logger.Debug("output dropped",
				zap.Int("ip", ip),
				zap.Error(err),
			)
		}
		return advance, nil

	case OpReadKey:
		return advance, vm.readKey(ctx)
	}

	return advance, ErrUnknownInstruction
}

func (vm *VM) readKey(ctx context.Context) error {
	v, err := vm.input(ctx)
	if errors.Is(err, io.EOF) {
		return vm.push(EOF)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	return vm.push(int32(v & 0xFF))
}

func (vm *VM) push(v int32) error {
	return vm.data.Push(v)
}

func (vm *VM) pop() (int32, error) {
	v, err := vm.data.Pop()
	if errors.Is(err, errStackEmpty) {
		return 0, ErrDataStackUnderflow
	}
	return v, err
}

func (vm *VM) rpop() (int32, error) {
	v, err := vm.rstack.Pop()
	if errors.Is(err, errStackEmpty) {
		return 0, ErrReturnStackUnderflow
	}
	return v, err
}

// DataStack returns a copy of the data stack, bottom first.
func (vm *VM) DataStack() []int32 {
	return vm.data.Values()
}

// ReturnStack returns a copy of the return stack, bottom first.
func (vm *VM) ReturnStack() []int32 {
	return vm.rstack.Values()
}

func (vm *VM) Memory() *Memory {
	return vm.mem
}

func (vm *VM) Program() *program.Program {
	return vm.prog
}

// Labels returns a copy of the label table of the loaded program.
func (vm *VM) Labels() map[string]int {
	out := make(map[string]int, len(vm.prog.Labels))
	for k, v := range vm.prog.Labels {
		out[k] = v
	}
	return out
}

// Steps reports how many steps the most recent run took.
func (vm *VM) Steps() int {
	return vm.steps
}
