// Package x86 defines the target-neutral instruction model emitted by the
// code generator, the register families of the x86 family, and a printer
// which renders programs as GNU assembler input in AT&T syntax.
package x86

import "fmt"

// Arch selects the register width of the target
type Arch int

const (
	X86_64 Arch = iota
	X86_32
)

// OS selects external symbol mangling. Mach-O (Darwin) prefixes C-convention
// symbols with an underscore; ELF does not.
type OS int

const (
	Linux OS = iota
	Darwin
)

// Target identifies a concrete platform to generate code for
type Target struct {
	Arch Arch
	OS   OS
}

var (
	LinuxX86_64  = Target{Arch: X86_64, OS: Linux}
	DarwinX86_64 = Target{Arch: X86_64, OS: Darwin}
	LinuxX86_32  = Target{Arch: X86_32, OS: Linux}
)

// ParseTarget resolves a target name as given on the command line
func ParseTarget(name string) (Target, error) {
	switch name {
	case "linux-x86_64":
		return LinuxX86_64, nil
	case "darwin-x86_64", "macos-x86_64":
		return DarwinX86_64, nil
	case "linux-x86_32":
		return LinuxX86_32, nil
	default:
		return Target{}, fmt.Errorf("unknown target %q", name)
	}
}

func (t Target) String() string {
	arch := "x86_64"
	if t.Arch == X86_32 {
		arch = "x86_32"
	}
	os := "linux"
	if t.OS == Darwin {
		os = "darwin"
	}
	return os + "-" + arch
}

// WordSize returns the width in bytes of the target's natural register
func (t Target) WordSize() int {
	if t.Arch == X86_32 {
		return 4
	}
	return 8
}

// ExternalSymbol returns the symbol name to use when calling a function with
// standard C calling conventions
func (t Target) ExternalSymbol(name string) string {
	if t.OS == Darwin {
		return "_" + name
	}
	return name
}
