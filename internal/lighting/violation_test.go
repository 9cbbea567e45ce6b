package lighting

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

func TestCollector_SortedView(t *testing.T) {
	c := NewCollector()
	c.Report(Violation{Channel: world.BlockLight, Pos: vec.Vec3{X: 0, Y: 0, Z: 0}, Rule: RuleA})
	c.Report(Violation{Channel: world.SkyLight, Pos: vec.Vec3{X: 5, Y: 1, Z: 0}, Rule: RuleB})
	c.Report(Violation{Channel: world.SkyLight, Pos: vec.Vec3{X: 5, Y: 1, Z: 0}, Rule: RuleA})
	c.Report(Violation{Channel: world.SkyLight, Pos: vec.Vec3{X: 9, Y: 0, Z: 0}, Rule: RuleC})

	got := c.Violations()
	require.Len(t, got, 4)
	assert.Equal(t, vec.Vec3{X: 9}, got[0].Pos, "сначала меньший Y")
	assert.Equal(t, RuleA, got[1].Rule)
	assert.Equal(t, RuleB, got[2].Rule)
	assert.Equal(t, world.BlockLight, got[3].Channel)

	assert.Equal(t, 2, c.Count(RuleA))
	assert.Equal(t, 4, c.Len())
	c.Reset()
	assert.Zero(t, c.Len())
}

func TestLogReporter_Format(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logging.NewWriterLogger("lighting", &buf, logging.TRACE))
	r.Report(Violation{
		Channel: world.SkyLight,
		Pos:     vec.Vec3{X: -3, Y: 64, Z: 12},
		Rule:    RuleA,
		Message: "Light below emit level 15 > 4",
	})

	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "[sky] Light below emit level 15 > 4 at -3, 64, 12")
}

func TestMultiReporter(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	MultiReporter{a, b, Discard}.Report(Violation{Rule: RuleC})

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Count(RuleC))
}

func TestViolation_JSON(t *testing.T) {
	v := Violation{
		Pos:     vec.Vec3{X: 1, Y: 2, Z: 3},
		Channel: world.BlockLight,
		Rule:    RuleB,
		Message: "Light below support level 8 > 5",
		Actual:  5,
		Inward:  8,
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"channel":"block"`)
	assert.Contains(t, string(data), `"rule":"B"`)

	var back Violation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v, back)

	var r Rule
	assert.Error(t, r.UnmarshalText([]byte("D")))
}
