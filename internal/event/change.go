package event

import (
	"time"

	"github.com/google/uuid"
)

// Op names a committed tree mutation.
type Op string

const (
	OpCreate     Op = "create"
	OpMove       Op = "move"
	OpVisibility Op = "visibility"
	OpReorder    Op = "reorder"
	OpRename     Op = "rename"
	OpContent    Op = "content"
	OpDelete     Op = "delete"
	OpImport     Op = "import"
)

// Change is the journal record of one committed mutation.
type Change struct {
	ID      string    `json:"id"`
	Op      Op        `json:"op"`
	NodeID  int64     `json:"node_id"`
	Name    string    `json:"name"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
	Detail  string    `json:"detail,omitempty"`
}

// NewChange stamps a change with a fresh id and the current time.
func NewChange(op Op, nodeID int64, name string, version uint64) *Change {
	return &Change{
		ID:      uuid.NewString(),
		Op:      op,
		NodeID:  nodeID,
		Name:    name,
		Version: version,
		At:      time.Now().UTC(),
	}
}
