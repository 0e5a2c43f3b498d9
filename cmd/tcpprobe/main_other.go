//go:build !(linux || darwin)

// File: cmd/tcpprobe/main_other.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "tcpprobe: unsupported platform")
	os.Exit(1)
}
