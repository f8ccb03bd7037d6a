// Package rt carries the C runtime support library which generated programs
// link against, and names its entry points for the code generator.
package rt

import (
	_ "embed"
	"os"
	"path/filepath"
)

// Entry points of the runtime library, called from generated code with the
// standard C calling convention.
const (
	Malloc    = "malloc"
	Intcmp    = "intcmp"
	Intcpy    = "intcpy"
	Intfill   = "intfill"
	Assertion = "assertion"
)

//go:embed csrc/runtime.c
var source []byte

// Source returns the C source of the runtime library
func Source() []byte {
	return source
}

// WriteTo drops runtime.c into a directory so the user can assemble and link
// a generated program with a plain C toolchain.
func WriteTo(dir string) (string, error) {
	path := filepath.Join(dir, "runtime.c")
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
