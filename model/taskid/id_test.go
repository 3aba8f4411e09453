package taskid

import "testing"

import "github.com/stretchr/testify/assert"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"F:1:S1:123",
		"F:1:S1:123:U1",
		"F:1:S1:123:U1:P1:23",
		"F:1:S1:123:U1:P1:23:C1",
		"F:1:S1:123:U1:P1:23:C1:W323",
		"!:F:1:S1:123:U1:P1:23:C1:W323",
		"F:1:S1:123:U1:P1:23:C1:W323:R2",
	}
	for _, raw := range cases {
		id, err := Parse(raw)
		if !assert.NoError(t, err, raw) {
			continue
		}
		assert.Equal(t, raw, id.String(), raw)
	}
}

func TestParseFields(t *testing.T) {
	id, err := Parse("F:1:S1:123:U1:P1:23:C1:W323")
	assert.NoError(t, err)
	assert.Equal(t, 1, id.ClientTaskID)
	assert.Equal(t, 1, id.ServerID)
	assert.Equal(t, 123, id.ClientSerial)
	assert.Equal(t, 1, id.UniverseSerial)
	assert.True(t, id.HasUniverse)
	assert.Equal(t, 1, id.SpaceID)
	assert.Equal(t, 23, id.SpaceSerial)
	assert.True(t, id.HasSpace)
	assert.Equal(t, 1, id.ComputerID)
	assert.Equal(t, 323, id.WorkerID)
	assert.False(t, id.Successor)
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"",
		"G:1:S1:123",
		"F:1:S1",
		"F:1:S1:123:X9",
		"F:1:S1:123:U1:garbage",
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestWithMarkersIdempotent(t *testing.T) {
	id, err := Parse("F:1:S1:123")
	assert.NoError(t, err)

	id = id.WithUniverse(1)
	assert.Equal(t, "F:1:S1:123:U1", id.String())

	// Re-applying must not duplicate the segment.
	id = id.WithUniverse(99)
	assert.Equal(t, "F:1:S1:123:U1", id.String())

	id = id.WithSpace(2, 7)
	assert.Equal(t, "F:1:S1:123:U1:P2:7", id.String())
	id = id.WithSpace(9, 9)
	assert.Equal(t, "F:1:S1:123:U1:P2:7", id.String())

	id = id.WithComputer(4)
	assert.Equal(t, "F:1:S1:123:U1:P2:7:C4", id.String())
	id = id.WithComputer(5)
	assert.Equal(t, "F:1:S1:123:U1:P2:7:C4", id.String())
}

func TestWithRedispatchAndSuccessor(t *testing.T) {
	id, err := Parse("F:1:S1:123:U1:P2:7:C4")
	assert.NoError(t, err)

	id = id.WithRedispatch(1)
	assert.Equal(t, "F:1:S1:123:U1:P2:7:C4:R1", id.String())

	id = id.AsSuccessor()
	assert.Equal(t, "!:F:1:S1:123:U1:P2:7:C4:R1", id.String())
}

func TestStripComputer(t *testing.T) {
	id, err := Parse("F:1:S1:123:U1:P2:7:C4:W9")
	assert.NoError(t, err)
	id = id.StripComputer()
	assert.Equal(t, "F:1:S1:123:U1:P2:7", id.String())
}

func TestStripRouting(t *testing.T) {
	id, err := Parse("!:F:1:S1:123:U1:P2:7:C4:W9:R3")
	assert.NoError(t, err)
	id = id.StripRouting()
	assert.Equal(t, "F:1:S1:123", id.String())
	assert.False(t, id.HasUniverse)
	assert.False(t, id.HasSpace)
	assert.False(t, id.HasComputer)
	assert.False(t, id.HasWorker)
	assert.False(t, id.HasRedispatch)
	assert.False(t, id.Successor)

	// Re-tagging after stripping must take effect, unlike re-tagging a
	// fully routed id (see TestWithMarkersIdempotent): a decomposed
	// child must not inherit its parent's already-assigned segments.
	id = id.WithUniverse(5)
	assert.Equal(t, "F:1:S1:123:U5", id.String())
}

func TestMatchesServer(t *testing.T) {
	id, err := Parse("F:1:S3:123")
	assert.NoError(t, err)
	assert.True(t, id.MatchesServer(3))
	assert.False(t, id.MatchesServer(4))
}
