package seat

// ComposeOutput is the result of feeding one keysym into a ComposeState
// (§4.I "Compose state is a deterministic Moore machine").
type ComposeOutput int

const (
	ComposePending ComposeOutput = iota
	ComposeComposed
	ComposeAborted
	ComposeNone // keysym did not participate in composition at all
)

// Well-known keysyms that always clear compose state regardless of the
// active sequence (§4.I "Escape, Ctrl-c, Ctrl-w also clear it").
const (
	KeysymEscape = 0xff1b
	KeysymC      = 0x0063
	KeysymW      = 0x0077
)

// ComposeTable maps a keysym sequence to its composed output string.
// A real deployment loads this table from a compose file; tests and
// callers supply it directly.
type ComposeTable map[string]string

// ComposeState is a deterministic Moore machine: Sequence accumulates
// keysyms, and Feed emits Pending while Sequence is a valid prefix of
// some table entry, Composed when it exactly matches one, and Aborted
// when an active sequence stops matching. A first keysym that matches no
// entry yields None instead.
type ComposeState struct {
	Table    ComposeTable
	Sequence []uint32
}

// Feed advances the machine by one keysym, returning the output and (for
// ComposeComposed) the produced string.
func (c *ComposeState) Feed(keysym uint32, ctrl bool) (ComposeOutput, string) {
	if keysym == KeysymEscape || (ctrl && (keysym == KeysymC || keysym == KeysymW)) {
		c.Sequence = nil
		return ComposeAborted, ""
	}

	wasIdle := len(c.Sequence) == 0
	c.Sequence = append(c.Sequence, keysym)
	key := sequenceKey(c.Sequence)

	if s, ok := c.Table[key]; ok {
		c.Sequence = nil
		return ComposeComposed, s
	}
	if c.hasPrefix(key) {
		return ComposePending, ""
	}
	c.Sequence = nil
	if wasIdle {
		// A single unmatched keysym with no active sequence never
		// entered composition in the first place.
		return ComposeNone, ""
	}
	return ComposeAborted, ""
}

func (c *ComposeState) hasPrefix(key string) bool {
	for k := range c.Table {
		if len(k) > len(key) && k[:len(key)] == key {
			return true
		}
	}
	return false
}

func sequenceKey(seq []uint32) string {
	b := make([]byte, 0, len(seq)*4)
	for _, s := range seq {
		b = append(b, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
	}
	return string(b)
}
