package domain

// Mode tells the executor whether a script returns rows or mutates stock.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Valid reports whether the generator supplied a recognized mode tag.
func (m Mode) Valid() bool {
	return m == ModeRead || m == ModeWrite
}

// CommandPayload is the JSON object the command generator returns.
// Exactly one of SQL or Error is populated; any other shape is a
// format failure and never reaches the store.
type CommandPayload struct {
	SQL     string `json:"sql"`
	Mode    Mode   `json:"mode"`
	Summary string `json:"summary"`
	Error   string `json:"error"`
}

// ReadResult holds the rows produced by the final statement of a read
// script. Columns preserves the order the statement produced them in,
// which maps lose.
type ReadResult struct {
	Columns []string
	Rows    []map[string]any
}

// CommandResult is the successful outcome of one pipeline run.
// Rows is nil for write mode.
type CommandResult struct {
	Mode    Mode
	Summary string
	Rows    *ReadResult
}
