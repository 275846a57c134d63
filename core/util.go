package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	log "github.com/sirupsen/logrus"
)

// PrintState renders the registers and memory of a state as tables.
func PrintState(w io.Writer, state *State) {
	regTable := table.NewWriter()
	regTable.SetOutputMirror(w)
	regTable.SetTitle("Registers")
	regTable.AppendHeader(table.Row{"Register", "Size", "Value"})

	for _, name := range state.DefinedRegisters() {
		r := state.registers[name]
		regTable.AppendRow(table.Row{
			name, r.Size.String(), "0x" + strings.ToUpper(r.Value.Text(16)),
		})
	}

	regTable.Render()

	if state.Memory.Size() == 0 {
		return
	}

	memTable := table.NewWriter()
	memTable.SetOutputMirror(w)
	memTable.SetTitle("Memory")
	memTable.AppendHeader(table.Row{"Address", "Bytes"})

	var (
		start uint64
		line  []string
		prev  uint64
	)

	flush := func() {
		if len(line) > 0 {
			memTable.AppendRow(table.Row{fmt.Sprintf("%016X", start), strings.Join(line, " ")})
		}
		line = nil
	}

	for _, a := range state.Memory.Addresses() {
		if len(line) == 0 || a != prev+1 || len(line) == 16 {
			flush()
			start = a
		}

		b, _ := state.Memory.Byte(a)
		line = append(line, fmt.Sprintf("%02X", b))
		prev = a
	}
	flush()

	memTable.Render()
}

// LogState dumps the defined registers at debug level.
func LogState(state *State) {
	fields := log.Fields{"cursor": state.Cursor.String()}
	for _, name := range state.DefinedRegisters() {
		fields[name] = "0x" + state.registers[name].Value.Text(16)
	}

	log.WithFields(fields).Debug("state")
}
