//go:build !lsddebug

package detection

const debugAssertions = false
