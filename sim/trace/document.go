package trace

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/dasim/dasim/sim"
)

// FormatVersion is written into every persisted trace.
const FormatVersion = "2"

// document is the YAML layout of a Trace. P is the payload representation:
// outPayload when writing, inPayload when reading.
type document[P any] struct {
	Version   string           `yaml:"version"`
	Algorithm string           `yaml:"algorithm"`
	System    docSystem        `yaml:"system"`
	History   []docSnapshot[P] `yaml:"history"`
	Events    []docEvent[P]    `yaml:"events"`
}

type docSystem struct {
	Topology  string         `yaml:"topology"`
	Neighbors []docNeighbors `yaml:"neighbors"`
	Synchrony docSynchrony   `yaml:"synchrony"`
}

type docNeighbors struct {
	Pid       sim.Pid        `yaml:"pid"`
	Neighbors sim.ProcessSet `yaml:"neighbors"`
}

type docSynchrony struct {
	Name   string              `yaml:"name"`
	Type   sim.SynchronyType   `yaml:"type"`
	Delays map[string]Duration `yaml:"delays,omitempty"`
}

// docSnapshot lists the states changed since the previous snapshot, or all
// of them when Full is set.
type docSnapshot[P any] struct {
	At     Duration `yaml:"at"`
	Full   bool     `yaml:"full,omitempty"`
	States []P      `yaml:"states"`
}

type docEvent[P any] struct {
	SentAt    Duration `yaml:"sent_at"`
	ArrivesAt Duration `yaml:"arrives_at"`
	Event     P        `yaml:"event"`
}

// outPayload is a registered value tagged with its type name. The value is
// encoded in place with the rest of the document.
type outPayload struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// inPayload keeps the value undecoded until the type name is resolved.
type inPayload struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

func encodePayload(reg *Registry, v any) (outPayload, error) {
	name, err := reg.nameOf(v)
	if err != nil {
		return outPayload{}, err
	}
	return outPayload{Type: name, Value: v}, nil
}

// sortedPids returns the keys of neighbors in ascending order.
func sortedPids(neighbors map[sim.Pid]sim.ProcessSet) []sim.Pid {
	pids := maps.Keys(neighbors)
	slices.Sort(pids)
	return pids
}

func toDocSystem(info sim.SystemInfo) docSystem {
	ds := docSystem{
		Topology: info.Topology,
		Synchrony: docSynchrony{
			Name: info.Synchrony.Name,
			Type: info.Synchrony.Type,
		},
	}
	if len(info.Synchrony.Delays) > 0 {
		ds.Synchrony.Delays = make(map[string]Duration, len(info.Synchrony.Delays))
	}
	for _, pid := range sortedPids(info.Neighbors) {
		ds.Neighbors = append(ds.Neighbors, docNeighbors{Pid: pid, Neighbors: info.Neighbors[pid]})
	}
	for name, d := range info.Synchrony.Delays {
		ds.Synchrony.Delays[name] = FromDuration(d)
	}
	return ds
}

func (ds docSystem) info() sim.SystemInfo {
	info := sim.SystemInfo{
		Topology:  ds.Topology,
		Neighbors: make(map[sim.Pid]sim.ProcessSet, len(ds.Neighbors)),
		Synchrony: sim.SynchronyInfo{Name: ds.Synchrony.Name, Type: ds.Synchrony.Type},
	}
	for _, n := range ds.Neighbors {
		info.Neighbors[n.Pid] = n.Neighbors
	}
	if ds.Synchrony.Delays != nil {
		info.Synchrony.Delays = make(map[string]time.Duration, len(ds.Synchrony.Delays))
		for name, d := range ds.Synchrony.Delays {
			info.Synchrony.Delays[name] = d.AsDuration()
		}
	}
	return info
}

// MarshalYAML encodes tr as a YAML document. Every event and state type in
// tr must be registered in reg.
func MarshalYAML(tr *Trace, reg *Registry) ([]byte, error) {
	doc := document[outPayload]{
		Version:   FormatVersion,
		Algorithm: tr.AlgorithmName,
		System:    toDocSystem(tr.System),
		History:   make([]docSnapshot[outPayload], 0, len(tr.History)),
		Events:    make([]docEvent[outPayload], 0, len(tr.Events)),
	}
	var prev *sim.Configuration
	for i, h := range tr.History {
		states, full := snapshotDelta(prev, h.Configuration)
		snap := docSnapshot[outPayload]{At: FromDuration(h.At), Full: full, States: make([]outPayload, 0, len(states))}
		for _, st := range states {
			p, err := encodePayload(reg, st)
			if err != nil {
				return nil, fmt.Errorf("history[%d]: %w", i, err)
			}
			snap.States = append(snap.States, p)
		}
		doc.History = append(doc.History, snap)
		prev = h.Configuration
	}
	for i, e := range tr.Events {
		p, err := encodePayload(reg, e.Event)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		doc.Events = append(doc.Events, docEvent[outPayload]{
			SentAt:    FromDuration(e.SentAt),
			ArrivesAt: FromDuration(e.ArrivesAt),
			Event:     p,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("trace: encoding document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML document produced by MarshalYAML.
func UnmarshalYAML(data []byte, reg *Registry) (*Trace, error) {
	var doc document[inPayload]
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("trace: decoding document: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("trace: unsupported format version %q", doc.Version)
	}

	tr := New(doc.Algorithm, doc.System.info())
	var prev *sim.Configuration
	for i, snap := range doc.History {
		states := make([]sim.State, 0, len(snap.States))
		for _, p := range snap.States {
			value := p.Value
			st, err := reg.decodeState(p.Type, value.Decode)
			if err != nil {
				return nil, fmt.Errorf("history[%d]: %w", i, err)
			}
			states = append(states, st)
		}
		config, err := applySnapshot(prev, states, snap.Full)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		tr.AddHistory(TimedConfiguration{At: snap.At.AsDuration(), Configuration: config})
		prev = config
	}
	for i, e := range doc.Events {
		value := e.Event.Value
		ev, err := reg.decodeEvent(e.Event.Type, value.Decode)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		tr.AddEvents(LocalTimedEvent{SentAt: e.SentAt.AsDuration(), ArrivesAt: e.ArrivesAt.AsDuration(), Event: ev})
	}
	return tr, nil
}
