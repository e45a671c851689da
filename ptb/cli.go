package ptb

import (
	"strconv"
	"strings"
)

// DefaultGasBudget is the gas budget used by generated command lines.
const DefaultGasBudget = 5_000_000

// CLICommand renders desc as a `one client ptb` invocation so the same call
// can be replayed from a terminal.
func CLICommand(desc *CallDescriptor, gasBudget uint64) string {
	if gasBudget == 0 {
		gasBudget = DefaultGasBudget
	}
	var b strings.Builder
	b.WriteString("one client ptb \\\n")
	b.WriteString("  --move-call ")
	b.WriteString(desc.Target())
	b.WriteString(" \\\n")
	for _, arg := range desc.Arguments {
		b.WriteString("    ")
		b.WriteString(arg.String())
		b.WriteString(" \\\n")
	}
	b.WriteString("  --gas-budget ")
	b.WriteString(strconv.FormatUint(gasBudget, 10))
	return b.String()
}
