// Package machine executes generated programs at the instruction-model
// level, without assembling or linking. It models word-wide registers, a
// sparse word-addressed memory with a descending stack and a bump-allocated
// heap, and intercepts calls to the runtime library symbols. It exists so
// tests can observe the behaviour of generated code, not just its shape.
package machine

import (
	"errors"
	"fmt"

	"github.com/whilelang/whilec/pkg/rt"
	"github.com/whilelang/whilec/pkg/x86"
)

// ErrAssertionFailed reports that the executed program called the runtime
// assertion entry with a false condition.
var ErrAssertionFailed = errors.New("machine: assertion failed")

// ErrStepLimit reports that execution exceeded the configured step budget,
// which almost always means the generated code loops.
var ErrStepLimit = errors.New("machine: step limit exceeded")

const (
	heapBase  = int64(0x10_0000)
	stackBase = int64(0x7fff_0000)

	// sentinel is the return address seeded below the entry frame; the
	// final ret popping it ends the run.
	sentinel = int64(-1)

	// DefaultMaxSteps bounds a single Run.
	DefaultMaxSteps = 1_000_000
)

// Machine holds the full execution state for one program
type Machine struct {
	Regs     map[x86.Register]int64
	Mem      map[int64]int64
	MaxSteps int
	Steps    int

	target   x86.Target
	word     int64
	program  []x86.Instruction
	labels   map[string]int
	pc       int
	cmp      int64 // flags model: result of the last comparison
	heapNext int64
	// frames records the stack pointer as of each pending call, so ret
	// can verify the callee restored the stack exactly.
	frames []int64
}

// New prepares a machine for a generated file. Label resolution happens
// here; a duplicate or dangling label is reported before any execution.
func New(file *x86.File, target x86.Target) (*Machine, error) {
	labels := map[string]int{}
	for pc, instr := range file.Code {
		if l, ok := instr.(x86.Label); ok {
			if _, dup := labels[l.Name]; dup {
				return nil, fmt.Errorf("machine: duplicate label %q", l.Name)
			}
			labels[l.Name] = pc
		}
	}
	for _, instr := range file.Code {
		if a, ok := instr.(x86.Addr); ok && a.Op != x86.Call {
			if _, ok := labels[a.Target]; !ok {
				return nil, fmt.Errorf("machine: jump to undefined label %q", a.Target)
			}
		}
	}
	return &Machine{
		Regs:     map[x86.Register]int64{},
		Mem:      map[int64]int64{},
		MaxSteps: DefaultMaxSteps,
		target:   target,
		word:     int64(target.WordSize()),
		program:  file.Code,
		labels:   labels,
		heapNext: heapBase,
	}, nil
}

// Run executes from the process entry symbol until the entry frame
// returns. A non-nil error means the program aborted (assertion), looped
// past the step budget, or the generated code broke an execution
// invariant such as stack balance.
func (m *Machine) Run() error {
	return m.RunFrom(m.target.ExternalSymbol("main"))
}

// RunFrom executes from an arbitrary label, typically a single compiled
// function under test.
func (m *Machine) RunFrom(label string) error {
	start, ok := m.labels[label]
	if !ok {
		return fmt.Errorf("machine: undefined entry label %q", label)
	}
	m.Regs[x86.SP] = stackBase
	m.push(sentinel)
	m.pc = start
	for {
		halted, err := m.step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
		m.Steps++
		if m.Steps >= m.MaxSteps {
			return ErrStepLimit
		}
	}
}

// ReadWord returns the word stored at a byte address
func (m *Machine) ReadWord(addr int64) int64 {
	return m.Mem[addr]
}

// Reg returns the current value of a register
func (m *Machine) Reg(r x86.Register) int64 {
	return m.Regs[r]
}

func (m *Machine) push(v int64) {
	m.Regs[x86.SP] -= m.word
	m.Mem[m.Regs[x86.SP]] = v
}

func (m *Machine) pop() int64 {
	v := m.Mem[m.Regs[x86.SP]]
	m.Regs[x86.SP] += m.word
	return v
}

func (m *Machine) step() (bool, error) {
	if m.pc < 0 || m.pc >= len(m.program) {
		return false, fmt.Errorf("machine: program counter %d out of range", m.pc)
	}
	instr := m.program[m.pc]
	m.pc++
	switch instr := instr.(type) {
	case x86.Label:
		// No effect at run time.
	case x86.Reg:
		return false, m.stepReg(instr)
	case x86.RegReg:
		m.stepRegReg(instr)
	case x86.ImmReg:
		m.stepImmReg(instr)
	case x86.Load:
		m.Regs[instr.Dst] = m.Mem[m.Regs[instr.Base]+int64(instr.Offset)]
	case x86.Store:
		m.Mem[m.Regs[instr.Base]+int64(instr.Offset)] = m.Regs[instr.Src]
	case x86.Addr:
		return false, m.stepAddr(instr)
	case x86.Unit:
		switch instr.Op {
		case x86.Cqto:
			m.Regs[x86.DX] = m.Regs[x86.AX] >> 63
		case x86.Ret:
			return m.stepRet()
		default:
			return false, fmt.Errorf("machine: unhandled unit op %s", instr.Op)
		}
	default:
		return false, fmt.Errorf("machine: unhandled instruction type %T", instr)
	}
	return false, nil
}

func (m *Machine) stepReg(instr x86.Reg) error {
	switch instr.Op {
	case x86.Push:
		m.push(m.Regs[instr.Reg])
	case x86.Pop:
		m.Regs[instr.Reg] = m.pop()
	case x86.Inc:
		m.Regs[instr.Reg]++
	case x86.Not:
		m.Regs[instr.Reg] = ^m.Regs[instr.Reg]
	case x86.Neg:
		m.Regs[instr.Reg] = -m.Regs[instr.Reg]
	case x86.Shl:
		m.Regs[instr.Reg] <<= 1
	case x86.Idiv:
		divisor := m.Regs[instr.Reg]
		if divisor == 0 {
			return fmt.Errorf("machine: division by zero")
		}
		dividend := m.Regs[x86.AX]
		m.Regs[x86.AX] = dividend / divisor
		m.Regs[x86.DX] = dividend % divisor
	default:
		return fmt.Errorf("machine: unhandled register op %s", instr.Op)
	}
	return nil
}

func (m *Machine) stepRegReg(instr x86.RegReg) {
	switch instr.Op {
	case x86.Mov:
		m.Regs[instr.Dst] = m.Regs[instr.Src]
	case x86.Add:
		m.Regs[instr.Dst] += m.Regs[instr.Src]
	case x86.Sub:
		m.Regs[instr.Dst] -= m.Regs[instr.Src]
	case x86.Imul:
		m.Regs[instr.Dst] *= m.Regs[instr.Src]
	case x86.Cmp:
		m.cmp = m.Regs[instr.Dst] - m.Regs[instr.Src]
	case x86.Xchg:
		m.Regs[instr.Src], m.Regs[instr.Dst] = m.Regs[instr.Dst], m.Regs[instr.Src]
	}
}

func (m *Machine) stepImmReg(instr x86.ImmReg) {
	switch instr.Op {
	case x86.MovImm:
		m.Regs[instr.Dst] = instr.Imm
	case x86.AddImm:
		m.Regs[instr.Dst] += instr.Imm
	case x86.SubImm:
		m.Regs[instr.Dst] -= instr.Imm
	case x86.ImulImm:
		m.Regs[instr.Dst] *= instr.Imm
	case x86.AndImm:
		m.Regs[instr.Dst] &= instr.Imm
	case x86.CmpImm:
		m.cmp = m.Regs[instr.Dst] - instr.Imm
	}
}

func (m *Machine) stepAddr(instr x86.Addr) error {
	taken := false
	switch instr.Op {
	case x86.Jmp:
		taken = true
	case x86.Jz:
		taken = m.cmp == 0
	case x86.Jnz:
		taken = m.cmp != 0
	case x86.Jl:
		taken = m.cmp < 0
	case x86.Jle:
		taken = m.cmp <= 0
	case x86.Jg:
		taken = m.cmp > 0
	case x86.Jge:
		taken = m.cmp >= 0
	case x86.Call:
		return m.call(instr.Target)
	}
	if taken {
		m.pc = m.labels[instr.Target]
	}
	return nil
}

func (m *Machine) call(target string) error {
	if pc, ok := m.labels[target]; ok {
		m.push(int64(m.pc))
		m.frames = append(m.frames, m.Regs[x86.SP])
		m.pc = pc
		return nil
	}
	return m.runtimeCall(target)
}

func (m *Machine) stepRet() (bool, error) {
	if len(m.frames) > 0 {
		expected := m.frames[len(m.frames)-1]
		if m.Regs[x86.SP] != expected {
			return false, fmt.Errorf("machine: stack imbalance at ret: stack pointer %#x, expected %#x",
				m.Regs[x86.SP], expected)
		}
		m.frames = m.frames[:len(m.frames)-1]
	}
	addr := m.pop()
	if addr == sentinel {
		if m.Regs[x86.SP] != stackBase {
			return false, fmt.Errorf("machine: stack imbalance at exit: stack pointer %#x", m.Regs[x86.SP])
		}
		return true, nil
	}
	m.pc = int(addr)
	return false, nil
}

// runtimeCall intercepts the runtime library entry points, reading
// arguments from the C convention parameter registers and returning the
// result in the accumulator.
func (m *Machine) runtimeCall(symbol string) error {
	switch symbol {
	case m.external(rt.Malloc):
		m.Regs[x86.AX] = m.malloc(m.Regs[x86.DI])
	case m.external(rt.Intcmp):
		m.Regs[x86.AX] = m.intcmp(m.Regs[x86.DI], m.Regs[x86.SI])
	case m.external(rt.Intcpy):
		m.Regs[x86.AX] = m.intcpy(m.Regs[x86.DI])
	case m.external(rt.Intfill):
		m.intfill(m.Regs[x86.DI], m.Regs[x86.SI])
	case m.external(rt.Assertion):
		if m.Regs[x86.DI] == 0 {
			return ErrAssertionFailed
		}
	default:
		return fmt.Errorf("machine: call to undefined symbol %q", symbol)
	}
	return nil
}

func (m *Machine) external(name string) string {
	return m.target.ExternalSymbol(name)
}

func (m *Machine) malloc(size int64) int64 {
	addr := m.heapNext
	if size < m.word {
		size = m.word
	}
	m.heapNext += (size + 15) &^ 15
	return addr
}

func (m *Machine) intcmp(a, b int64) int64 {
	lenA, lenB := m.Mem[a], m.Mem[b]
	if lenA != lenB {
		return 0
	}
	for i := int64(1); i <= lenA; i++ {
		if m.Mem[a+i*m.word] != m.Mem[b+i*m.word] {
			return 0
		}
	}
	return 1
}

func (m *Machine) intcpy(p int64) int64 {
	n := 1 + m.Mem[p]
	addr := m.malloc(n * m.word)
	for i := int64(0); i < n; i++ {
		m.Mem[addr+i*m.word] = m.Mem[p+i*m.word]
	}
	return addr
}

func (m *Machine) intfill(p, value int64) {
	n := m.Mem[p]
	for i := int64(1); i <= n; i++ {
		m.Mem[p+i*m.word] = value
	}
}
