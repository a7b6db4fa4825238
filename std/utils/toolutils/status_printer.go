package toolutils

import (
	"fmt"
	"io"
	"strings"
)

// StatusPrinter formats key=value status lines with the key left-padded so
// it ends at a fixed column, the shape athenad's control/dump command uses to render
// a human-readable snapshot instead of the JSON the rest of fw/mgmt emits.
type StatusPrinter struct {
	Out     io.Writer
	Padding int
}

// Print writes one key-value pair, left-padding key with spaces to the
// configured column width.
func (s StatusPrinter) Print(key string, value any) {
	pad := s.Padding - len(key)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(s.Out, "%s%s=%v\n", strings.Repeat(" ", pad), key, value)
}
