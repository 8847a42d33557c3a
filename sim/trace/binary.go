package trace

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"gopkg.in/yaml.v3"

	"github.com/dasim/dasim/sim"
)

// Binary image layout, in protobuf wire format. Durations are embedded
// google.protobuf.Duration messages; payloads are YAML bytes.
//
//	Trace        { 1: version string, 2: algorithm string, 3: System,
//	               4: repeated Snapshot, 5: repeated Event }
//	System       { 1: topology string, 2: repeated Neighbors, 3: Synchrony }
//	Neighbors    { 1: pid varint, 2: packed neighbor pids }
//	Synchrony    { 1: name string, 2: type string, 3: repeated Delay }
//	Delay        { 1: name string, 2: Duration }
//	Snapshot     { 1: at Duration, 2: repeated Payload, 3: full bool }
//	Event        { 1: sent_at Duration, 2: arrives_at Duration, 3: Payload }
//	Payload      { 1: type string, 2: value bytes }
//
// A snapshot carries only the states changed since the previous one unless
// full is set.
const (
	fieldVersion   protowire.Number = 1
	fieldAlgorithm protowire.Number = 2
	fieldSystem    protowire.Number = 3
	fieldSnapshot  protowire.Number = 4
	fieldEvent     protowire.Number = 5
)

var errMalformed = errors.New("trace: malformed binary image")

var deterministic = proto.MarshalOptions{Deterministic: true}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendDuration(b []byte, num protowire.Number, d time.Duration) ([]byte, error) {
	msg, err := deterministic.Marshal(durationpb.New(d))
	if err != nil {
		return nil, err
	}
	return appendMessage(b, num, msg), nil
}

func appendPayload(b []byte, num protowire.Number, reg *Registry, v any) ([]byte, error) {
	name, err := reg.nameOf(v)
	if err != nil {
		return nil, err
	}
	value, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("trace: encoding %q: %w", name, err)
	}
	var msg []byte
	msg = appendString(msg, 1, name)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, value)
	return appendMessage(b, num, msg), nil
}

func encodeSystem(info sim.SystemInfo) ([]byte, error) {
	var b []byte
	b = appendString(b, 1, info.Topology)
	for _, pid := range sortedPids(info.Neighbors) {
		var n []byte
		n = protowire.AppendTag(n, 1, protowire.VarintType)
		n = protowire.AppendVarint(n, protowire.EncodeZigZag(int64(pid)))
		var packed []byte
		for _, other := range info.Neighbors[pid].Slice() {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(other)))
		}
		n = appendMessage(n, 2, packed)
		b = appendMessage(b, 2, n)
	}

	var s []byte
	s = appendString(s, 1, info.Synchrony.Name)
	s = appendString(s, 2, string(info.Synchrony.Type))
	names := maps.Keys(info.Synchrony.Delays)
	slices.Sort(names)
	for _, name := range names {
		var d []byte
		d = appendString(d, 1, name)
		var err error
		if d, err = appendDuration(d, 2, info.Synchrony.Delays[name]); err != nil {
			return nil, err
		}
		s = appendMessage(s, 3, d)
	}
	return appendMessage(b, 3, s), nil
}

// MarshalBinary encodes tr as a protobuf-wire image. The output is
// deterministic: equal traces produce identical bytes.
func MarshalBinary(tr *Trace, reg *Registry) ([]byte, error) {
	var b []byte
	b = appendString(b, fieldVersion, FormatVersion)
	b = appendString(b, fieldAlgorithm, tr.AlgorithmName)
	system, err := encodeSystem(tr.System)
	if err != nil {
		return nil, err
	}
	b = appendMessage(b, fieldSystem, system)

	var prev *sim.Configuration
	for i, h := range tr.History {
		snap, err := appendDuration(nil, 1, h.At)
		if err != nil {
			return nil, err
		}
		states, full := snapshotDelta(prev, h.Configuration)
		for _, st := range states {
			if snap, err = appendPayload(snap, 2, reg, st); err != nil {
				return nil, fmt.Errorf("history[%d]: %w", i, err)
			}
		}
		if full {
			snap = protowire.AppendTag(snap, 3, protowire.VarintType)
			snap = protowire.AppendVarint(snap, protowire.EncodeBool(true))
		}
		b = appendMessage(b, fieldSnapshot, snap)
		prev = h.Configuration
	}
	for i, e := range tr.Events {
		ev, err := appendDuration(nil, 1, e.SentAt)
		if err != nil {
			return nil, err
		}
		if ev, err = appendDuration(ev, 2, e.ArrivesAt); err != nil {
			return nil, err
		}
		if ev, err = appendPayload(ev, 3, reg, e.Event); err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		b = appendMessage(b, fieldEvent, ev)
	}
	return b, nil
}

// field is one decoded (number, value) pair of a message.
type field struct {
	num    protowire.Number
	varint uint64
	bytes  []byte
}

// fields splits a message into its top-level fields. Only varint and
// length-delimited fields appear in a trace image.
func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			return nil, fmt.Errorf("%w: unexpected wire type %d for field %d", errMalformed, typ, num)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

func decodeDuration(b []byte) (time.Duration, error) {
	var d durationpb.Duration
	if err := proto.Unmarshal(b, &d); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := d.CheckValid(); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return d.AsDuration(), nil
}

// decodePayload returns the registered type name and its YAML bytes.
func decodePayload(b []byte) (string, []byte, error) {
	fs, err := fields(b)
	if err != nil {
		return "", nil, err
	}
	var name string
	var value []byte
	for _, f := range fs {
		switch f.num {
		case 1:
			name = string(f.bytes)
		case 2:
			value = f.bytes
		}
	}
	return name, value, nil
}

func yamlBytes(value []byte) decodeFunc {
	return func(into any) error { return yaml.Unmarshal(value, into) }
}

func decodeSystem(b []byte) (sim.SystemInfo, error) {
	info := sim.SystemInfo{Neighbors: make(map[sim.Pid]sim.ProcessSet)}
	fs, err := fields(b)
	if err != nil {
		return info, err
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			info.Topology = string(f.bytes)
		case 2:
			pid, neighbors, err := decodeNeighbors(f.bytes)
			if err != nil {
				return info, err
			}
			info.Neighbors[pid] = neighbors
		case 3:
			if info.Synchrony, err = decodeSynchrony(f.bytes); err != nil {
				return info, err
			}
		}
	}
	return info, nil
}

func decodeNeighbors(b []byte) (sim.Pid, sim.ProcessSet, error) {
	fs, err := fields(b)
	if err != nil {
		return 0, sim.ProcessSet{}, err
	}
	var pid sim.Pid
	var others []sim.Pid
	for _, f := range fs {
		switch f.num {
		case 1:
			pid = sim.Pid(protowire.DecodeZigZag(f.varint))
		case 2:
			packed := f.bytes
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return 0, sim.ProcessSet{}, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
				}
				others = append(others, sim.Pid(protowire.DecodeZigZag(v)))
				packed = packed[n:]
			}
		}
	}
	return pid, sim.NewProcessSet(others...), nil
}

func decodeSynchrony(b []byte) (sim.SynchronyInfo, error) {
	var info sim.SynchronyInfo
	fs, err := fields(b)
	if err != nil {
		return info, err
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			info.Name = string(f.bytes)
		case 2:
			info.Type = sim.SynchronyType(f.bytes)
		case 3:
			dfs, err := fields(f.bytes)
			if err != nil {
				return info, err
			}
			var name string
			var d time.Duration
			for _, df := range dfs {
				switch df.num {
				case 1:
					name = string(df.bytes)
				case 2:
					if d, err = decodeDuration(df.bytes); err != nil {
						return info, err
					}
				}
			}
			if info.Delays == nil {
				info.Delays = make(map[string]time.Duration)
			}
			info.Delays[name] = d
		}
	}
	return info, nil
}

func decodeSnapshot(b []byte, reg *Registry, prev *sim.Configuration) (TimedConfiguration, error) {
	var tc TimedConfiguration
	fs, err := fields(b)
	if err != nil {
		return tc, err
	}
	var states []sim.State
	full := false
	for _, f := range fs {
		switch f.num {
		case 1:
			if tc.At, err = decodeDuration(f.bytes); err != nil {
				return tc, err
			}
		case 2:
			name, value, err := decodePayload(f.bytes)
			if err != nil {
				return tc, err
			}
			st, err := reg.decodeState(name, yamlBytes(value))
			if err != nil {
				return tc, err
			}
			states = append(states, st)
		case 3:
			full = protowire.DecodeBool(f.varint)
		}
	}
	tc.Configuration, err = applySnapshot(prev, states, full)
	return tc, err
}

func decodeEvent(b []byte, reg *Registry) (LocalTimedEvent, error) {
	var e LocalTimedEvent
	fs, err := fields(b)
	if err != nil {
		return e, err
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			if e.SentAt, err = decodeDuration(f.bytes); err != nil {
				return e, err
			}
		case 2:
			if e.ArrivesAt, err = decodeDuration(f.bytes); err != nil {
				return e, err
			}
		case 3:
			name, value, err := decodePayload(f.bytes)
			if err != nil {
				return e, err
			}
			if e.Event, err = reg.decodeEvent(name, yamlBytes(value)); err != nil {
				return e, err
			}
		}
	}
	if e.Event == nil {
		return e, fmt.Errorf("%w: event without payload", errMalformed)
	}
	return e, nil
}

// UnmarshalBinary decodes an image produced by MarshalBinary.
func UnmarshalBinary(data []byte, reg *Registry) (*Trace, error) {
	fs, err := fields(data)
	if err != nil {
		return nil, err
	}
	tr := New("", sim.SystemInfo{})
	version := ""
	for _, f := range fs {
		switch f.num {
		case fieldVersion:
			version = string(f.bytes)
		case fieldAlgorithm:
			tr.AlgorithmName = string(f.bytes)
		case fieldSystem:
			if tr.System, err = decodeSystem(f.bytes); err != nil {
				return nil, err
			}
		case fieldSnapshot:
			tc, err := decodeSnapshot(f.bytes, reg, tr.Final())
			if err != nil {
				return nil, fmt.Errorf("history[%d]: %w", len(tr.History), err)
			}
			tr.AddHistory(tc)
		case fieldEvent:
			e, err := decodeEvent(f.bytes, reg)
			if err != nil {
				return nil, fmt.Errorf("events[%d]: %w", len(tr.Events), err)
			}
			tr.AddEvents(e)
		}
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("trace: unsupported format version %q", version)
	}
	return tr, nil
}
