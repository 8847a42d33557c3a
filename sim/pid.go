package sim

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Pid identifies a process. Pids are totally ordered and unique within a system.
type Pid int

func (p Pid) String() string {
	return fmt.Sprintf("p%d", int(p))
}

// ProcessSet is an immutable, sorted set of process identifiers.
// The zero value is the empty set; every constructor keeps the empty set in
// that canonical form so two sets with the same members are deeply equal.
type ProcessSet struct {
	pids []Pid
}

// NewProcessSet builds a set from the given pids, dropping duplicates.
func NewProcessSet(pids ...Pid) ProcessSet {
	if len(pids) == 0 {
		return ProcessSet{}
	}
	sorted := slices.Clone(pids)
	slices.Sort(sorted)
	return ProcessSet{pids: slices.Compact(sorted)}
}

// Len returns the number of processes in the set.
func (s ProcessSet) Len() int {
	return len(s.pids)
}

// Contains reports whether pid is a member.
func (s ProcessSet) Contains(pid Pid) bool {
	_, found := slices.BinarySearch(s.pids, pid)
	return found
}

// Slice returns the members in ascending order. The result is a copy.
func (s ProcessSet) Slice() []Pid {
	return slices.Clone(s.pids)
}

// Add returns a new set containing the receiver's members and pids.
func (s ProcessSet) Add(pids ...Pid) ProcessSet {
	return NewProcessSet(append(slices.Clone(s.pids), pids...)...)
}

// Union returns a new set with the members of both sets.
func (s ProcessSet) Union(other ProcessSet) ProcessSet {
	return s.Add(other.pids...)
}

// Without returns a new set without pid.
func (s ProcessSet) Without(pid Pid) ProcessSet {
	out := make([]Pid, 0, len(s.pids))
	for _, p := range s.pids {
		if p != pid {
			out = append(out, p)
		}
	}
	return NewProcessSet(out...)
}

// Equal reports whether both sets have the same members.
func (s ProcessSet) Equal(other ProcessSet) bool {
	return slices.Equal(s.pids, other.pids)
}

// IsSubsetOf reports whether every member of s is in other.
func (s ProcessSet) IsSubsetOf(other ProcessSet) bool {
	for _, p := range s.pids {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

func (s ProcessSet) String() string {
	parts := make([]string, len(s.pids))
	for i, p := range s.pids {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// MarshalYAML encodes the set as a sorted flow list of integers.
func (s ProcessSet) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, p := range s.pids {
		node.Content = append(node.Content, intNode(int(p)))
	}
	return node, nil
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

// UnmarshalYAML decodes a list of integers into a set.
func (s *ProcessSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ids []int
	if err := unmarshal(&ids); err != nil {
		return fmt.Errorf("decoding process set: %w", err)
	}
	pids := make([]Pid, len(ids))
	for i, id := range ids {
		pids[i] = Pid(id)
	}
	*s = NewProcessSet(pids...)
	return nil
}

// Channel is a potential communication link between two processes.
// Two directed channels are equal when their (S, R) pairs are; any comparison
// involving an undirected channel uses the normalized (min, max) pair.
// In YAML a channel is the flow sequence [s, r, directed].
type Channel struct {
	S        Pid  `yaml:"s"`
	R        Pid  `yaml:"r"`
	Directed bool `yaml:"directed"`
}

// DirectedChannel returns the channel s -> r.
func DirectedChannel(s, r Pid) Channel {
	return Channel{S: s, R: r, Directed: true}
}

// UndirectedChannel returns the channel {a, b}.
func UndirectedChannel(a, b Pid) Channel {
	return Channel{S: a, R: b}
}

// Normalized returns the endpoints with the smaller pid first.
func (c Channel) Normalized() (Pid, Pid) {
	if c.S < c.R {
		return c.S, c.R
	}
	return c.R, c.S
}

// Equal implements the comparison rule described on Channel.
func (c Channel) Equal(other Channel) bool {
	if c.Directed && other.Directed {
		return c.S == other.S && c.R == other.R
	}
	a1, b1 := c.Normalized()
	a2, b2 := other.Normalized()
	return a1 == a2 && b1 == b2
}

// canonical rewrites undirected channels into their normalized form.
func (c Channel) canonical() Channel {
	if c.Directed {
		return c
	}
	a, b := c.Normalized()
	return Channel{S: a, R: b}
}

func compareChannels(a, b Channel) int {
	if a.S != b.S {
		return int(a.S) - int(b.S)
	}
	if a.R != b.R {
		return int(a.R) - int(b.R)
	}
	switch {
	case a.Directed == b.Directed:
		return 0
	case a.Directed:
		return 1
	default:
		return -1
	}
}

// MarshalYAML encodes the channel as the flow sequence [s, r, directed].
func (c Channel) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.SequenceNode,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			intNode(int(c.S)),
			intNode(int(c.R)),
			{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(c.Directed)},
		},
	}, nil
}

// UnmarshalYAML accepts [s, r, directed] as well as the {s, r, directed} map.
func (c *Channel) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		type plain Channel
		return value.Decode((*plain)(c))
	}
	if value.Kind != yaml.SequenceNode || len(value.Content) != 3 {
		return fmt.Errorf("line %d: channel must be [s, r, directed]", value.Line)
	}
	var s, r int
	var directed bool
	if err := value.Content[0].Decode(&s); err != nil {
		return err
	}
	if err := value.Content[1].Decode(&r); err != nil {
		return err
	}
	if err := value.Content[2].Decode(&directed); err != nil {
		return err
	}
	*c = Channel{S: Pid(s), R: Pid(r), Directed: directed}
	return nil
}

func (c Channel) String() string {
	if c.Directed {
		return fmt.Sprintf("<%d,%d>", int(c.S), int(c.R))
	}
	return fmt.Sprintf("{%d,%d}", int(c.S), int(c.R))
}

// ChannelSet is an immutable, sorted set of channels. Like ProcessSet, the
// zero value is the canonical empty set.
type ChannelSet struct {
	channels []Channel
}

// NewChannelSet builds a set, merging channels that compare equal. An
// undirected channel absorbs both directed orientations of its pair, so the
// result does not depend on the order of channels.
func NewChannelSet(channels ...Channel) ChannelSet {
	if len(channels) == 0 {
		return ChannelSet{}
	}
	undirected := make(map[Channel]bool)
	for _, c := range channels {
		if !c.Directed {
			undirected[c.canonical()] = true
		}
	}
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		c = c.canonical()
		if c.Directed {
			a, b := c.Normalized()
			if undirected[Channel{S: a, R: b}] {
				continue
			}
		}
		out = append(out, c)
	}
	slices.SortFunc(out, compareChannels)
	return ChannelSet{channels: slices.Compact(out)}
}

// Len returns the number of channels.
func (s ChannelSet) Len() int {
	return len(s.channels)
}

// Contains reports whether a channel equal to c is a member.
func (s ChannelSet) Contains(c Channel) bool {
	return slices.ContainsFunc(s.channels, c.Equal)
}

// Slice returns the members in sorted order. The result is a copy.
func (s ChannelSet) Slice() []Channel {
	return slices.Clone(s.channels)
}

// Add returns a new set containing the receiver's members and channels.
func (s ChannelSet) Add(channels ...Channel) ChannelSet {
	return NewChannelSet(append(slices.Clone(s.channels), channels...)...)
}

// Union returns a new set with the members of both sets.
func (s ChannelSet) Union(other ChannelSet) ChannelSet {
	return s.Add(other.channels...)
}

// Endpoints returns every pid appearing at either end of a channel.
func (s ChannelSet) Endpoints() ProcessSet {
	pids := make([]Pid, 0, 2*len(s.channels))
	for _, c := range s.channels {
		pids = append(pids, c.S, c.R)
	}
	return NewProcessSet(pids...)
}

func (s ChannelSet) String() string {
	parts := make([]string, len(s.channels))
	for i, c := range s.channels {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// MarshalYAML encodes the set as a list of channels.
func (s ChannelSet) MarshalYAML() (interface{}, error) {
	if s.channels == nil {
		return []Channel{}, nil
	}
	return s.channels, nil
}

// UnmarshalYAML decodes a list of channels into a set.
func (s *ChannelSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var channels []Channel
	if err := unmarshal(&channels); err != nil {
		return fmt.Errorf("decoding channel set: %w", err)
	}
	*s = NewChannelSet(channels...)
	return nil
}
