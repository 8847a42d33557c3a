package trace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dasim/dasim/sim"
)

type ping struct {
	sim.MessageBase `yaml:",inline"`
	Round           int `yaml:"round"`
}

type wake struct {
	sim.SignalBase `yaml:",inline"`
}

type counter struct {
	sim.StateBase `yaml:",inline"`
	Count         int            `yaml:"count"`
	Seen          sim.ProcessSet `yaml:"seen"`
}

func testRegistry() *Registry {
	reg := NewRegistry()
	RegisterEvent[ping](reg, "test.ping")
	RegisterEvent[wake](reg, "test.wake")
	RegisterState[counter](reg, "test.counter")
	return reg
}

func testSystem() sim.SystemInfo {
	return sim.SystemInfo{
		Topology: "ring",
		Neighbors: map[sim.Pid]sim.ProcessSet{
			1: sim.NewProcessSet(2),
			2: sim.NewProcessSet(1),
		},
		Synchrony: sim.SynchronyInfo{
			Name:   "synchronous",
			Type:   sim.Synchronous,
			Delays: map[string]time.Duration{"min_delay": time.Second, "max_delay": time.Second},
		},
	}
}

// sampleTrace builds a two-step trace: p1 wakes and pings p2, p2 counts it.
// A second ping is lost.
func sampleTrace() *Trace {
	tr := New("pinger", testSystem())
	tr.RecordSchedule(0, 0, wake{SignalBase: sim.SignalBase{To: 1}})
	tr.RecordStep(0, sim.NewConfiguration(
		counter{StateBase: sim.StateBase{Owner: 1}, Count: 1},
		counter{StateBase: sim.StateBase{Owner: 2}},
	))
	tr.RecordSchedule(0, time.Second+500*time.Nanosecond, ping{MessageBase: sim.MessageBase{To: 2, From: 1}, Round: 1})
	tr.RecordSchedule(0, sim.Unreachable, ping{MessageBase: sim.MessageBase{To: 2, From: 1}, Round: 2})
	tr.RecordStep(time.Second+500*time.Nanosecond, sim.NewConfiguration(
		counter{StateBase: sim.StateBase{Owner: 1}, Count: 1},
		counter{StateBase: sim.StateBase{Owner: 2}, Count: 1, Seen: sim.NewProcessSet(1)},
	))
	return tr
}

func TestTrace_RecordAppendsInOrder(t *testing.T) {
	// GIVEN an empty trace
	tr := New("pinger", testSystem())
	assert.Nil(t, tr.Final())

	// WHEN steps and events are recorded
	tr = sampleTrace()

	// THEN history and events keep recording order
	require.Len(t, tr.History, 2)
	require.Len(t, tr.Events, 3)
	assert.Equal(t, time.Duration(0), tr.History[0].At)
	assert.True(t, tr.Events[0].IsSignal())
	assert.True(t, tr.Events[1].IsMessage())
	assert.Equal(t, 2, tr.Final().Len())
	assert.Len(t, tr.Messages(), 2)
}

func TestLocalTimedEvent_Accessors(t *testing.T) {
	tr := sampleTrace()

	signal := tr.Events[0]
	_, ok := signal.Sender()
	assert.False(t, ok)
	assert.Equal(t, sim.Pid(1), signal.Receiver())
	assert.Equal(t, time.Duration(0), signal.Latency())

	msg := tr.Events[1]
	sender, ok := msg.Sender()
	assert.True(t, ok)
	assert.Equal(t, sim.Pid(1), sender)
	assert.Equal(t, sim.Pid(2), msg.Receiver())
	assert.Equal(t, time.Second+500*time.Nanosecond, msg.Latency())
	assert.False(t, msg.IsLost())
	assert.True(t, tr.Events[2].IsLost())
}

func TestTrace_YAMLRoundTrip(t *testing.T) {
	// GIVEN a trace with signals, messages and a lost message
	tr := sampleTrace()
	reg := testRegistry()

	// WHEN it is written and read back as YAML
	data, err := MarshalYAML(tr, reg)
	require.NoError(t, err)
	got, err := UnmarshalYAML(data, reg)
	require.NoError(t, err)

	// THEN the decoded trace equals the original
	assert.Equal(t, tr, got)
	assert.Contains(t, string(data), "days:")
	assert.Contains(t, string(data), "type: test.ping")
}

func TestTrace_SnapshotsHoldOnlyChangedStates(t *testing.T) {
	// GIVEN a trace whose second step changes p2 only, then a step with a
	// different domain
	tr := sampleTrace()
	tr.RecordStep(2*time.Second, sim.NewConfiguration(counter{StateBase: sim.StateBase{Owner: 3}}))
	reg := testRegistry()

	data, err := MarshalYAML(tr, reg)
	require.NoError(t, err)

	// THEN the persisted snapshots are full, partial, full
	var raw struct {
		History []struct {
			Full   bool `yaml:"full"`
			States []struct {
				Type string `yaml:"type"`
			} `yaml:"states"`
		} `yaml:"history"`
	}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Len(t, raw.History, 3)
	assert.True(t, raw.History[0].Full)
	assert.Len(t, raw.History[0].States, 2)
	assert.False(t, raw.History[1].Full)
	assert.Len(t, raw.History[1].States, 1)
	assert.True(t, raw.History[2].Full)
	assert.Contains(t, string(data), "seen: [1]")

	// AND both formats rebuild every configuration
	for _, format := range []Format{FormatYAML, FormatBinary} {
		data, err := Encode(tr, reg, format)
		require.NoError(t, err)
		got, err := Decode(data, reg, format)
		require.NoError(t, err)
		assert.Equal(t, tr, got, "format %s", format)
	}
}

func TestUnmarshalYAML_PartialSnapshotFirst(t *testing.T) {
	doc := `version: "2"
algorithm: pinger
history:
  - at: {}
    states:
      - type: test.counter
        value: {pid: 1, count: 1}
`
	_, err := UnmarshalYAML([]byte(doc), testRegistry())
	assert.ErrorContains(t, err, "partial snapshot")
}

func TestTrace_BinaryRoundTrip(t *testing.T) {
	tr := sampleTrace()
	reg := testRegistry()

	data, err := MarshalBinary(tr, reg)
	require.NoError(t, err)
	got, err := UnmarshalBinary(data, reg)
	require.NoError(t, err)

	assert.Equal(t, tr, got)
}

func TestTrace_EncodingIsDeterministic(t *testing.T) {
	reg := testRegistry()
	for _, format := range []Format{FormatYAML, FormatBinary} {
		a, err := Encode(sampleTrace(), reg, format)
		require.NoError(t, err)
		b, err := Encode(sampleTrace(), reg, format)
		require.NoError(t, err)
		assert.Equal(t, a, b, "format %s", format)
	}
}

func TestTrace_EmptyRoundTrip(t *testing.T) {
	tr := New("idle", testSystem())
	reg := testRegistry()

	for _, format := range []Format{FormatYAML, FormatBinary} {
		data, err := Encode(tr, reg, format)
		require.NoError(t, err)
		got, err := Decode(data, reg, format)
		require.NoError(t, err)
		assert.Equal(t, tr, got, "format %s", format)
	}
}

func TestMarshal_UnregisteredTypeFails(t *testing.T) {
	tr := sampleTrace()
	reg := NewRegistry()
	RegisterState[counter](reg, "test.counter")

	_, err := MarshalYAML(tr, reg)
	assert.ErrorContains(t, err, "not registered")
	_, err = MarshalBinary(tr, reg)
	assert.ErrorContains(t, err, "not registered")
}

func TestUnmarshal_UnknownTypeFails(t *testing.T) {
	data, err := MarshalYAML(sampleTrace(), testRegistry())
	require.NoError(t, err)

	reg := NewRegistry()
	RegisterState[counter](reg, "test.counter")
	_, err = UnmarshalYAML(data, reg)
	assert.ErrorContains(t, err, "unknown registered type")
}

func TestUnmarshalBinary_MalformedInput(t *testing.T) {
	_, err := UnmarshalBinary([]byte{0xff, 0xff, 0xff}, testRegistry())
	assert.ErrorIs(t, err, errMalformed)

	_, err = UnmarshalBinary(nil, testRegistry())
	assert.ErrorContains(t, err, "unsupported format version")
}

func TestRegistry_DuplicateNamePanics(t *testing.T) {
	reg := testRegistry()
	assert.Panics(t, func() { RegisterEvent[wake](reg, "test.ping") })
	assert.Equal(t, []string{"test.counter", "test.ping", "test.wake"}, reg.Names())
}

func TestDuration_SplitsIntoComponents(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want Duration
	}{
		{0, Duration{}},
		{1500 * time.Millisecond, Duration{Seconds: 1, Nanos: 500_000_000}},
		{25*time.Hour + 3*time.Nanosecond, Duration{Days: 1, Seconds: 3600, Nanos: 3}},
		{sim.Unreachable, FromDuration(sim.Unreachable)},
	}
	for _, tt := range tests {
		got := FromDuration(tt.d)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.d, got.AsDuration())
	}
}

func TestSaveLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	reg := testRegistry()
	tr := sampleTrace()

	for _, name := range []string{"run.yaml", "run.yml", "run.bin"} {
		path := filepath.Join(dir, name)
		require.NoError(t, tr.Save(path, reg))

		got, err := Load(path, reg)
		require.NoError(t, err)
		assert.Equal(t, tr, got, name)
	}

	assert.Error(t, tr.Save(filepath.Join(dir, "run.txt"), reg))
}
