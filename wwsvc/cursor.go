package wwsvc

const (
	// CursorIDCreate asks the server to open a new cursor.
	CursorIDCreate = "CREATE"

	// CursorIDClosed is sent by the server when no pages remain.
	CursorIDClosed = "CLOSED"

	// DefaultPageSize is used when a cursor is created with page size 0.
	DefaultPageSize uint32 = 500
)

// CursorState is the lifecycle state of a Cursor.
type CursorState int

const (
	CursorCreated CursorState = iota
	CursorOpen
	CursorClosed
)

func (s CursorState) String() string {
	switch s {
	case CursorCreated:
		return "created"
	case CursorOpen:
		return "open"
	case CursorClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Cursor is a server-driven pagination token. The server returns the next id
// in the WWSVC-CURSOR response header after every cursored request.
type Cursor struct {
	id       string
	pageSize uint32
}

// NewCursor returns a cursor in the created state.
func NewCursor(pageSize uint32) *Cursor {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{id: CursorIDCreate, pageSize: pageSize}
}

// ID returns the id sent with the next request.
func (c *Cursor) ID() string { return c.id }

// PageSize is sent as WWSVC-ACCEPT-RESULT-MAX-LINES while the cursor is open.
func (c *Cursor) PageSize() uint32 { return c.pageSize }

// Closed reports whether the server has closed the cursor.
func (c *Cursor) Closed() bool { return c.id == CursorIDClosed }

// Advance replaces the id with the one supplied by the server.
func (c *Cursor) Advance(id string) { c.id = id }

// State derives the lifecycle state from the id.
func (c *Cursor) State() CursorState {
	switch c.id {
	case CursorIDCreate:
		return CursorCreated
	case CursorIDClosed:
		return CursorClosed
	default:
		return CursorOpen
	}
}
