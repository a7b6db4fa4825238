package utils

import (
	"fmt"
	"os"
	"runtime"
)

// PrintStackTrace dumps every goroutine's stack to stderr. Wired to SIGQUIT
// in fw/cmd so an operator can inspect a stuck forwarder without killing it.
func PrintStackTrace() {
	buf := make([]byte, 1<<20)
	stacklen := runtime.Stack(buf, true)
	fmt.Fprintf(os.Stderr, "*** goroutine dump...\n%s\n*** end\n", buf[:stacklen])
}
