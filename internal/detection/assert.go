package detection

import "fmt"

// assertf panics with the formatted message when cond is false and the
// package is built with the lsddebug tag. It compiles to nothing otherwise.
func assertf(cond bool, format string, args ...any) {
	if debugAssertions && !cond {
		panic(fmt.Sprintf("detection: "+format, args...))
	}
}
