package vm

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// FrameHeader is the number of cells CALL pushes above the arguments: the
// return address and the caller's base pointer.
const FrameHeader = 2

const defaultStepLimit = 1 << 22

// BuiltinFunc implements a CALL_BUILTIN or CALL_EXTERNAL target. Builtins
// without a result return Nil.
type BuiltinFunc func(m *Machine, args []Value) (Value, error)

// Machine executes a Program. It exists so generated code can be checked by
// running it.
type Machine struct {
	code  []Instruction
	stack []Value
	heap  []Value
	// live allocations, base address -> cell count
	blocks map[int]int

	bp, ip int
	steps  int
	halted bool

	Builtins  map[string]BuiltinFunc
	Externals map[string]BuiltinFunc
	Out       io.Writer
	StepLimit int
}

func NewMachine(p *Program, out io.Writer) *Machine {
	return &Machine{
		code:      p.Code,
		stack:     make([]Value, 0, 256),
		heap:      make([]Value, 1, 256), // address 0 is never handed out
		blocks:    make(map[int]int),
		Builtins:  DefaultBuiltins(),
		Externals: make(map[string]BuiltinFunc),
		Out:       out,
		StepLimit: defaultStepLimit,
	}
}

// Stack returns the live operand stack, bottom first.
func (m *Machine) Stack() []Value { return m.stack }

// LiveAllocations counts heap blocks that were allocated and not freed.
func (m *Machine) LiveAllocations() int { return len(m.blocks) }

// HeapCell reads cell off of the object p points to.
func (m *Machine) HeapCell(p Value, off int) (Value, error) {
	addr, err := m.heapAddr(p, off)
	if err != nil {
		return Value{}, err
	}
	return m.heap[addr], nil
}

// Run executes from the first instruction until HALT or the end of the code.
func (m *Machine) Run() error {
	m.ip, m.bp, m.halted = 0, 0, false
	for !m.halted && m.ip < len(m.code) {
		m.steps++
		if m.StepLimit > 0 && m.steps > m.StepLimit {
			return m.fault("step limit %d reached", m.StepLimit)
		}
		if err := m.step(m.code[m.ip]); err != nil {
			return err
		}
	}
	glog.V(2).Infof("vm: finished after %d steps, stack depth %d", m.steps, len(m.stack))
	return nil
}

func (m *Machine) fault(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "vm: ip %d", m.ip)
}

func (m *Machine) push(v Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() (Value, error) {
	if len(m.stack) == 0 {
		return Value{}, m.fault("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) slot(idx int) (int, error) {
	if idx < 0 || idx >= len(m.stack) {
		return 0, m.fault("stack slot %d out of range (depth %d)", idx, len(m.stack))
	}
	return idx, nil
}

// stackIndex resolves a stack addressing mode to a slot index.
func (m *Machine) stackIndex(mode AddressingMode, k int) (int, error) {
	switch mode {
	case Absolute:
		return m.slot(k)
	case BasePointerRelative:
		return m.slot(m.bp + k)
	case Relative:
		return m.slot(len(m.stack) + k)
	}
	return 0, m.fault("addressing mode %s does not name a stack slot", mode)
}

func (m *Machine) heapAddr(p Value, off int) (int, error) {
	if p.Kind != PointerValue {
		return 0, m.fault("dereference of %s", p)
	}
	base := p.AsInt()
	size, ok := m.blocks[base]
	if !ok {
		return 0, m.fault("access to freed or invalid object %s", p)
	}
	if off < 0 || off >= size {
		return 0, m.fault("field %d out of range of object %s (size %d)", off, p, size)
	}
	return base + off, nil
}

func (m *Machine) step(in Instruction) error {
	next := m.ip + 1
	switch in.Op {
	case OpNop, OpComment, OpSetDebugTag:

	case OpPush:
		m.push(in.Operand)
	case OpPushFunction:
		m.push(FunctionAt(in.Operand.AsInt()))

	case OpLoad:
		if in.Mode == RuntimeComputed {
			p, err := m.pop()
			if err != nil {
				return err
			}
			v, err := m.HeapCell(p, in.Operand.AsInt())
			if err != nil {
				return err
			}
			m.push(v)
			break
		}
		idx, err := m.stackIndex(in.Mode, in.Operand.AsInt())
		if err != nil {
			return err
		}
		m.push(m.stack[idx])

	case OpStore:
		if in.Mode == RuntimeComputed {
			p, err := m.pop()
			if err != nil {
				return err
			}
			v, err := m.pop()
			if err != nil {
				return err
			}
			addr, err := m.heapAddr(p, in.Operand.AsInt())
			if err != nil {
				return err
			}
			m.heap[addr] = v
			break
		}
		v, err := m.pop()
		if err != nil {
			return err
		}
		idx, err := m.stackIndex(in.Mode, in.Operand.AsInt())
		if err != nil {
			return err
		}
		m.stack[idx] = v

	case OpPop:
		n := in.Operand.AsInt()
		if n < 0 || n > len(m.stack) {
			return m.fault("cannot pop %d of %d cells", n, len(m.stack))
		}
		m.stack = m.stack[:len(m.stack)-n]

	case OpAlloc:
		n := in.Operand.AsInt()
		if n < 1 {
			n = 1
		}
		base := len(m.heap)
		m.heap = append(m.heap, make([]Value, n)...)
		m.blocks[base] = n
		m.push(Pointer(base))
	case OpFree:
		p, err := m.pop()
		if err != nil {
			return err
		}
		if p.IsNil() {
			break
		}
		if _, err := m.heapAddr(p, 0); err != nil {
			return err
		}
		delete(m.blocks, p.AsInt())

	case OpNeg, OpNot, OpComplement, OpToFloat, OpToInt:
		x, err := m.pop()
		if err != nil {
			return err
		}
		r, err := m.unary(in.Op, x)
		if err != nil {
			return err
		}
		m.push(r)

	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpCEq, OpCNeq, OpCLt, OpCLe, OpCGt, OpCGe,
		OpAnd, OpOr, OpXor, OpShl, OpShr:
		b, err := m.pop()
		if err != nil {
			return err
		}
		a, err := m.pop()
		if err != nil {
			return err
		}
		r, err := m.binary(in.Op, a, b)
		if err != nil {
			return err
		}
		m.push(r)

	case OpJumpBy:
		next = in.Target(m.ip)
	case OpJumpByIfTrue, OpJumpByIfFalse:
		c, err := m.pop()
		if err != nil {
			return err
		}
		if c.AsBool() == (in.Op == OpJumpByIfTrue) {
			next = in.Target(m.ip)
		}

	case OpCall:
		target := in.Target(m.ip)
		if in.Mode == Pop {
			f, err := m.pop()
			if err != nil {
				return err
			}
			if f.Kind != FunctionValue {
				return m.fault("call through %s", f)
			}
			target = f.AsInt()
		}
		m.push(Int(int64(m.ip + 1)))
		m.push(Int(int64(m.bp)))
		m.bp = len(m.stack)
		next = target

	case OpReturn:
		if len(m.stack) != m.bp {
			return m.fault("unbalanced frame: depth %d, base pointer %d", len(m.stack), m.bp)
		}
		bp, err := m.pop()
		if err != nil {
			return err
		}
		ret, err := m.pop()
		if err != nil {
			return err
		}
		m.bp, next = bp.AsInt(), ret.AsInt()

	case OpCallBuiltin, OpCallExternal:
		table := m.Builtins
		if in.Op == OpCallExternal {
			table = m.Externals
		}
		name, err := m.pop()
		if err != nil {
			return err
		}
		arity := in.Operand.AsInt()
		if arity > len(m.stack) {
			return m.fault("%s: %d arguments expected, stack has %d", name.S, arity, len(m.stack))
		}
		fn, ok := table[name.S]
		if !ok {
			return m.fault("unknown %s '%s'", in.Op, name.S)
		}
		args := append([]Value(nil), m.stack[len(m.stack)-arity:]...)
		m.stack = m.stack[:len(m.stack)-arity]
		r, err := fn(m, args)
		if err != nil {
			return errors.Wrapf(err, "vm: ip %d: %s", m.ip, name.S)
		}
		m.push(r)

	case OpHalt:
		m.halted = true

	default:
		return m.fault("unknown opcode %d", in.Op)
	}
	m.ip = next
	return nil
}
