// Package diag is the side channel drivers use for human-readable error and
// timeout strings. Nothing on a success path writes here, so a Sink may be
// arbitrarily slow (UART, USB CDC) without affecting bus throughput.
package diag

import "io"

// Sink receives one complete diagnostic line per call, without a trailing
// newline.
type Sink interface {
	Log(s string)
}

// Discard drops everything. It is the default sink.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(string) {}

// Console prints via the runtime console (UART or USB CDC under TinyGo,
// stdout on the host).
var Console Sink = console{}

type console struct{}

func (console) Log(s string) { println(s) }

// NewWriter adapts an io.Writer; each entry becomes one line.
func NewWriter(w io.Writer) Sink { return writer{w} }

type writer struct{ w io.Writer }

func (ws writer) Log(s string) {
	ws.w.Write([]byte(s))
	ws.w.Write([]byte{'\n'})
}
