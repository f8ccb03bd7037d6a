package x86

// Instruction is the interface for all instruction forms
type Instruction interface {
	implInstruction()
}

// Label places a branch target. Global labels are exported from the object
// file (used for the process entry symbol).
type Label struct {
	Name   string
	Global bool
}

// RegOp is an operation over one register operand
type RegOp int

const (
	Push RegOp = iota
	Pop
	Inc
	Not
	Neg
	Idiv
	Shl // shift left by one
)

var regOpNames = [...]string{"push", "pop", "inc", "not", "neg", "idiv", "shl"}

func (op RegOp) String() string { return regOpNames[op] }

// Reg is a single-register instruction
type Reg struct {
	Op  RegOp
	Reg Register
}

// RegRegOp is an operation over two register operands
type RegRegOp int

const (
	Mov RegRegOp = iota
	Add
	Sub
	Imul
	Cmp // sets flags from Dst - Src
	Xchg
)

var regRegOpNames = [...]string{"mov", "add", "sub", "imul", "cmp", "xchg"}

func (op RegRegOp) String() string { return regRegOpNames[op] }

// RegReg is a register-register instruction. Rendered in AT&T order, so the
// destination is the second operand.
type RegReg struct {
	Op  RegRegOp
	Src Register
	Dst Register
}

// ImmRegOp is an operation with an immediate source and register destination
type ImmRegOp int

const (
	MovImm ImmRegOp = iota
	AddImm
	SubImm
	ImulImm
	AndImm
	CmpImm // sets flags from Dst - Imm
)

var immRegOpNames = [...]string{"mov", "add", "sub", "imul", "and", "cmp"}

func (op ImmRegOp) String() string { return immRegOpNames[op] }

// ImmReg is an immediate-register instruction
type ImmReg struct {
	Op  ImmRegOp
	Imm int64
	Dst Register
}

// Load moves one word from memory at Offset(Base) into Dst
type Load struct {
	Offset int
	Base   Register
	Dst    Register
}

// Store moves one word from Src into memory at Offset(Base)
type Store struct {
	Src    Register
	Offset int
	Base   Register
}

// AddrOp is a control transfer to a labelled address
type AddrOp int

const (
	Jmp AddrOp = iota
	Jz
	Jnz
	Jl
	Jle
	Jg
	Jge
	Call
)

var addrOpNames = [...]string{"jmp", "jz", "jnz", "jl", "jle", "jg", "jge", "call"}

func (op AddrOp) String() string { return addrOpNames[op] }

// Addr is a jump, conditional jump or call to a label or symbol
type Addr struct {
	Op     AddrOp
	Target string
}

// UnitOp is an operation with no operands
type UnitOp int

const (
	Ret UnitOp = iota
	Cqto // sign-extend the accumulator into DX:AX before division
)

var unitOpNames = [...]string{"ret", "cqto"}

func (op UnitOp) String() string { return unitOpNames[op] }

// Unit is an instruction with no operands
type Unit struct {
	Op UnitOp
}

func (Label) implInstruction()  {}
func (Reg) implInstruction()    {}
func (RegReg) implInstruction() {}
func (ImmReg) implInstruction() {}
func (Load) implInstruction()   {}
func (Store) implInstruction()  {}
func (Addr) implInstruction()   {}
func (Unit) implInstruction()   {}

// Constant is an entry in the data section
type Constant struct {
	Name  string
	Quads []int64 // word values, emitted at target width
	Str   string  // used instead of Quads when non-empty
}

// File is a complete generated program: an ordered instruction sequence and
// a constants section.
type File struct {
	Code []Instruction
	Data []Constant
}
