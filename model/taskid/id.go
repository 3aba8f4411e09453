// Package taskid parses and renders the hierarchical task identifier
// grammar used throughout the fabric. The id is parsed once into a
// struct and rendered back to its wire string only at RPC boundaries,
// avoiding repeated substring parsing on the hot path.
package taskid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// ID is the structured form of a task identifier:
//
//	[!:]F:<clientTaskID>:S<serverID>:<clientSerial>:U<universeSerial>
//	     [:P<spaceID>:<spaceSerial>][:C<computerID>][:W<workerID>][:R<redispatch>]
//
// Segments are appended left-to-right as a task descends the hierarchy; a
// tier marker is absent (HasX == false) until that tier has routed the
// task. The leading "!" marks a successor (continuation) result.
type ID struct {
	Successor bool

	ClientTaskID int // token following the literal "F"
	ServerID     int // "S<n>"
	ClientSerial int // bare int following the server segment
	HasRouting   bool

	UniverseSerial int // "U<n>"
	HasUniverse    bool

	SpaceID     int
	SpaceSerial int
	HasSpace    bool

	ComputerID int
	HasComputer bool

	WorkerID  int
	HasWorker bool

	Redispatch  int
	HasRedispatch bool
}

// Parse tokenizes raw using the grammar's parsly matchers and returns the
// structured identifier. It returns an error on malformed input rather than
// panicking, since ids cross RPC boundaries as untrusted strings.
func Parse(raw string) (ID, error) {
	var id ID
	cursor := parsly.NewCursor("taskid", []byte(raw), 0)

	if matched := cursor.MatchOne(bangToken); matched.Code == bangToken.Code {
		id.Successor = true
		if m := cursor.MatchOne(colonToken); m.Code != colonToken.Code {
			return id, fmt.Errorf("taskid: expected ':' after '!' in %q", raw)
		}
	}

	if matched := cursor.MatchOne(letterFToken); matched.Code != letterFToken.Code {
		return id, fmt.Errorf("taskid: expected client tag 'F' in %q", raw)
	}
	if m := cursor.MatchOne(colonToken); m.Code != colonToken.Code {
		return id, fmt.Errorf("taskid: expected ':' after 'F' in %q", raw)
	}
	clientTaskID, err := matchInt(cursor, raw, "client task id")
	if err != nil {
		return id, err
	}
	id.ClientTaskID = clientTaskID

	if m := cursor.MatchOne(colonToken); m.Code != colonToken.Code {
		return id, fmt.Errorf("taskid: expected ':' before server segment in %q", raw)
	}
	if m := cursor.MatchOne(letterSToken); m.Code != letterSToken.Code {
		return id, fmt.Errorf("taskid: expected 'S' segment in %q", raw)
	}
	serverID, err := matchInt(cursor, raw, "server id")
	if err != nil {
		return id, err
	}
	id.ServerID = serverID

	if m := cursor.MatchOne(colonToken); m.Code != colonToken.Code {
		return id, fmt.Errorf("taskid: expected ':' before client serial in %q", raw)
	}
	clientSerial, err := matchInt(cursor, raw, "client serial")
	if err != nil {
		return id, err
	}
	id.ClientSerial = clientSerial
	id.HasRouting = true

	// Optional: ":U<n>" and beyond. Remaining tiers may be absent entirely
	// for a task that has not yet been routed past this point.
	for {
		matched := cursor.MatchOne(colonToken)
		if matched.Code != colonToken.Code {
			break
		}
		marker := cursor.MatchAny(letterUToken, letterPToken, letterCToken, letterWToken, letterRToken)
		switch marker.Code {
		case letterUToken.Code:
			n, err := matchInt(cursor, raw, "universe serial")
			if err != nil {
				return id, err
			}
			id.UniverseSerial = n
			id.HasUniverse = true
		case letterPToken.Code:
			n, err := matchInt(cursor, raw, "space id")
			if err != nil {
				return id, err
			}
			id.SpaceID = n
			if m := cursor.MatchOne(colonToken); m.Code != colonToken.Code {
				return id, fmt.Errorf("taskid: expected ':' after space id in %q", raw)
			}
			serial, err := matchInt(cursor, raw, "space serial")
			if err != nil {
				return id, err
			}
			id.SpaceSerial = serial
			id.HasSpace = true
		case letterCToken.Code:
			n, err := matchInt(cursor, raw, "computer id")
			if err != nil {
				return id, err
			}
			id.ComputerID = n
			id.HasComputer = true
		case letterWToken.Code:
			n, err := matchInt(cursor, raw, "worker id")
			if err != nil {
				return id, err
			}
			id.WorkerID = n
			id.HasWorker = true
		case letterRToken.Code:
			n, err := matchInt(cursor, raw, "redispatch counter")
			if err != nil {
				return id, err
			}
			id.Redispatch = n
			id.HasRedispatch = true
		default:
			return id, fmt.Errorf("taskid: unrecognized segment marker in %q", raw)
		}
	}

	if cursor.Pos != cursor.InputSize {
		return id, fmt.Errorf("taskid: trailing garbage in %q at %d", raw, cursor.Pos)
	}
	return id, nil
}

func matchInt(cursor *parsly.Cursor, raw, what string) (int, error) {
	matched := cursor.MatchOne(digitsToken)
	if matched.Code != digitsToken.Code {
		return 0, fmt.Errorf("taskid: expected %s in %q", what, raw)
	}
	text := matched.Text(cursor)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("taskid: invalid %s %q in %q: %w", what, text, raw, err)
	}
	return n, nil
}

// String renders the identifier back to its wire form.
func (id ID) String() string {
	var b strings.Builder
	if id.Successor {
		b.WriteString("!:")
	}
	fmt.Fprintf(&b, "F:%d:S%d:%d", id.ClientTaskID, id.ServerID, id.ClientSerial)
	if id.HasUniverse {
		fmt.Fprintf(&b, ":U%d", id.UniverseSerial)
	}
	if id.HasSpace {
		fmt.Fprintf(&b, ":P%d:%d", id.SpaceID, id.SpaceSerial)
	}
	if id.HasComputer {
		fmt.Fprintf(&b, ":C%d", id.ComputerID)
	}
	if id.HasWorker {
		fmt.Fprintf(&b, ":W%d", id.WorkerID)
	}
	if id.HasRedispatch {
		fmt.Fprintf(&b, ":R%d", id.Redispatch)
	}
	return b.String()
}

// WithUniverse returns a copy with the ":U<n>" segment set. Idempotent: if
// the segment is already present it is left untouched, so re-sending an
// already-tagged task never duplicates the tier's segment.
func (id ID) WithUniverse(serial int) ID {
	if id.HasUniverse {
		return id
	}
	id.UniverseSerial = serial
	id.HasUniverse = true
	return id
}

// WithSpace returns a copy with the ":P<spaceID>:<serial>" segment set,
// idempotent on HasSpace.
func (id ID) WithSpace(spaceID, serial int) ID {
	if id.HasSpace {
		return id
	}
	id.SpaceID = spaceID
	id.SpaceSerial = serial
	id.HasSpace = true
	return id
}

// WithComputer returns a copy with the ":C<computerID>" segment set,
// idempotent on HasComputer.
func (id ID) WithComputer(computerID int) ID {
	if id.HasComputer {
		return id
	}
	id.ComputerID = computerID
	id.HasComputer = true
	return id
}

// WithWorker returns a copy with the ":W<workerID>" segment set. Appended
// locally by the Computer's worker pool; not part of the routing core.
func (id ID) WithWorker(workerID int) ID {
	id.WorkerID = workerID
	id.HasWorker = true
	return id
}

// WithRedispatch returns a copy tagged with a re-dispatch counter, recorded
// as a new suffix rather than by rewriting already-assigned :P/:C segments.
func (id ID) WithRedispatch(n int) ID {
	id.Redispatch = n
	id.HasRedispatch = true
	return id
}

// AsSuccessor returns a copy with the leading "!" successor marker set.
func (id ID) AsSuccessor() ID {
	id.Successor = true
	return id
}

// StripComputer returns a copy with the ":C..." (and any trailing ":W...")
// segment removed, restoring the pre-assignment form the Space expects when
// a computer proxy forwards a result upward.
func (id ID) StripComputer() ID {
	id.ComputerID = 0
	id.HasComputer = false
	id.WorkerID = 0
	id.HasWorker = false
	return id
}

// MatchesServer reports whether this id was routed through the given
// server, used by Universe.unregisterServer to purge a dead client's tasks.
func (id ID) MatchesServer(serverID int) bool {
	return id.HasRouting && id.ServerID == serverID
}

// StripRouting clears every tier tag appended after the initial client
// submission (:U, :P, :C, :W, :R), keeping ClientTaskID/ServerID/
// ClientSerial so the result still routes back to the same submitting
// client. A task.Task.Execute implementation that decomposes into child
// tasks must build each child's id from this rather than copying its own
// id verbatim: every WithX setter on this type is idempotent on its own
// HasX flag, so a child that inherited its parent's already-assigned
// :U/:P/:C would have those setters silently no-op on re-dispatch, leaving
// every sibling decomposed from the same parent indistinguishable.
func (id ID) StripRouting() ID {
	id.UniverseSerial = 0
	id.HasUniverse = false
	id.SpaceID = 0
	id.SpaceSerial = 0
	id.HasSpace = false
	id.ComputerID = 0
	id.HasComputer = false
	id.WorkerID = 0
	id.HasWorker = false
	id.Redispatch = 0
	id.HasRedispatch = false
	id.Successor = false
	return id
}
