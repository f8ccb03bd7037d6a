package x86

import (
	"fmt"
	"io"
)

// Printer outputs a generated file as GNU assembler input in AT&T syntax
type Printer struct {
	w      io.Writer
	target Target
}

// NewPrinter creates a printer for a given target
func NewPrinter(w io.Writer, target Target) *Printer {
	return &Printer{w: w, target: target}
}

// PrintFile outputs an entire generated file
func (p *Printer) PrintFile(f *File) {
	if len(f.Data) > 0 {
		fmt.Fprintf(p.w, "\t.data\n")
		for _, c := range f.Data {
			p.printConstant(c)
		}
		fmt.Fprintf(p.w, "\n")
	}
	fmt.Fprintf(p.w, "\t.text\n")
	for _, inst := range f.Code {
		p.printInstruction(inst)
	}
}

func (p *Printer) printConstant(c Constant) {
	fmt.Fprintf(p.w, "%s:\n", c.Name)
	if c.Str != "" {
		fmt.Fprintf(p.w, "\t.asciz\t%q\n", c.Str)
		return
	}
	directive := ".quad"
	if p.target.Arch == X86_32 {
		directive = ".long"
	}
	for _, q := range c.Quads {
		fmt.Fprintf(p.w, "\t%s\t%d\n", directive, q)
	}
}

// suffix returns the AT&T operand-width suffix for the target word size
func (p *Printer) suffix() string {
	if p.target.Arch == X86_32 {
		return "l"
	}
	return "q"
}

func (p *Printer) reg(r Register) string {
	return "%" + r.Name(p.target)
}

func (p *Printer) printInstruction(inst Instruction) {
	s := p.suffix()
	switch i := inst.(type) {
	case Label:
		if i.Global {
			fmt.Fprintf(p.w, "\t.globl\t%s\n", i.Name)
		}
		fmt.Fprintf(p.w, "%s:\n", i.Name)
	case Reg:
		fmt.Fprintf(p.w, "\t%s%s\t%s\n", i.Op, s, p.reg(i.Reg))
	case RegReg:
		fmt.Fprintf(p.w, "\t%s%s\t%s, %s\n", i.Op, s, p.reg(i.Src), p.reg(i.Dst))
	case ImmReg:
		fmt.Fprintf(p.w, "\t%s%s\t$%d, %s\n", i.Op, s, i.Imm, p.reg(i.Dst))
	case Load:
		fmt.Fprintf(p.w, "\tmov%s\t%s, %s\n", s, p.mem(i.Offset, i.Base), p.reg(i.Dst))
	case Store:
		fmt.Fprintf(p.w, "\tmov%s\t%s, %s\n", s, p.reg(i.Src), p.mem(i.Offset, i.Base))
	case Addr:
		// Control transfers take no width suffix.
		fmt.Fprintf(p.w, "\t%s\t%s\n", i.Op, i.Target)
	case Unit:
		fmt.Fprintf(p.w, "\t%s\n", p.unitName(i.Op))
	default:
		panic(fmt.Sprintf("unhandled instruction type: %T", inst))
	}
}

func (p *Printer) mem(offset int, base Register) string {
	if offset == 0 {
		return fmt.Sprintf("(%s)", p.reg(base))
	}
	return fmt.Sprintf("%d(%s)", offset, p.reg(base))
}

func (p *Printer) unitName(op UnitOp) string {
	if op == Cqto && p.target.Arch == X86_32 {
		// The 32-bit counterpart sign-extends EAX into EDX:EAX.
		return "cltd"
	}
	return op.String()
}
