package bbssession

import (
	"fmt"
	"strings"

	"github.com/peterh/liner"

	"github.com/icyboard/icyboard/internal/bbsnode"
)

// SysopConsole is the local operator's own input surface: a readline
// prompt (distinct from any caller's Terminal) used to issue
// board-wide commands (broadcasting a message, listing who is on, quitting),
// grounded on spec.md §4.6's "optional sysop connection handle".
type SysopConsole struct {
	line  *liner.State
	table *bbsnode.NodeTable
}

// NewSysopConsole wraps a fresh liner.State over the process's stdin/stdout,
// history-enabled the way an interactive sysop shell expects.
func NewSysopConsole(table *bbsnode.NodeTable) *SysopConsole {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &SysopConsole{line: l, table: table}
}

// Close releases the underlying terminal state.
func (c *SysopConsole) Close() error { return c.line.Close() }

// Serve reads one local sysop command at a time until the prompt returns
// io.EOF (ctrl-D) or a "quit"/"exit" line, dispatching the small set of
// board-operator verbs a local console supports.
func (c *SysopConsole) Serve() error {
	for {
		input, err := c.line.Prompt("sysop> ")
		if err != nil {
			return err
		}
		c.line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "QUIT", "EXIT":
			return nil
		case "WHO":
			fmt.Print(c.table.WhosOn())
		case "BROADCAST":
			if len(fields) > 1 {
				c.table.Broadcast(-1, bbsnode.Broadcast, strings.Join(fields[1:], " "))
			}
		}
	}
}
