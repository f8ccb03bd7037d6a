package x86

// Register identifies a register family. Instructions are emitted against
// families; the target decides which head of the family (64- or 32-bit) is
// meant when the program is rendered.
type Register int

const (
	AX Register = iota
	BX
	CX
	DX
	DI
	SI
	BP // frame pointer
	SP // stack pointer
	IP
)

var regNames64 = [...]string{"rax", "rbx", "rcx", "rdx", "rdi", "rsi", "rbp", "rsp", "rip"}
var regNames32 = [...]string{"eax", "ebx", "ecx", "edx", "edi", "esi", "ebp", "esp", "eip"}

func (r Register) String() string { return regNames64[r] }

// Name returns the width-correct register name for a target
func (r Register) Name(t Target) string {
	if t.Arch == X86_32 {
		return regNames32[r]
	}
	return regNames64[r]
}
