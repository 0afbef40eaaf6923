// Package bgp serialises mitigation rules into the canonical Flow Spec
// textual form consumed by the downstream BGP speaker. The speaker itself
// is an external collaborator; this package only produces well-formed
// announcements.
package bgp

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// ActionType selects the traffic action of a Flow Spec rule.
type ActionType int

const (
	ActionAccept ActionType = iota
	ActionDiscard
	ActionRateLimit
)

// Action is the action clause of a rule. The zero value serialises as
// "accept;".
type Action struct {
	actionType ActionType
	rateLimit  uint64
}

// SetType selects the action kind.
func (a *Action) SetType(t ActionType) {
	a.actionType = t
}

// SetRateLimit sets the byte-rate cap used by ActionRateLimit.
func (a *Action) SetRateLimit(limit uint64) {
	a.rateLimit = limit
}

// Serialize renders the action clause.
func (a *Action) Serialize() string {
	switch a.actionType {
	case ActionDiscard:
		return "discard;"
	case ActionRateLimit:
		return fmt.Sprintf("rate-limit %d;", a.rateLimit)
	default:
		return "accept;"
	}
}

// SerializeVector joins pre-rendered values with a separator. An empty list
// yields the empty string.
func SerializeVector(values []string, sep string) string {
	return strings.Join(values, sep)
}

// SerializeVectorWithPrefix renders a numeric list with an operator token
// before each value: prefix+v1+sep+prefix+v2+... The operator token is
// supplied by the caller because Flow Spec match operators depend on the
// clause.
func SerializeVectorWithPrefix(values []uint16, sep string, prefix string) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(prefix)
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	return b.String()
}

// Rule is one Flow Spec announcement: a match clause plus exactly one
// action clause.
type Rule struct {
	SourcePrefix      netip.Prefix
	DestinationPrefix netip.Prefix

	SourcePorts      []uint16
	DestinationPorts []uint16

	// Protocols holds L4 protocol numbers for the protocol clause.
	Protocols []uint16

	Fragmented bool

	Action Action
}

// port values carry the equality operator in the textual form.
const portOperatorPrefix = "="

// Serialize renders the full rule.
func (r *Rule) Serialize() string {
	var match []string
	if r.SourcePrefix.IsValid() {
		match = append(match, fmt.Sprintf("source %s;", r.SourcePrefix))
	}
	if r.DestinationPrefix.IsValid() {
		match = append(match, fmt.Sprintf("destination %s;", r.DestinationPrefix))
	}
	if clause := SerializeVectorWithPrefix(r.Protocols, " ", portOperatorPrefix); clause != "" {
		match = append(match, fmt.Sprintf("protocol %s;", clause))
	}
	if clause := SerializeVectorWithPrefix(r.SourcePorts, " ", portOperatorPrefix); clause != "" {
		match = append(match, fmt.Sprintf("source-port %s;", clause))
	}
	if clause := SerializeVectorWithPrefix(r.DestinationPorts, " ", portOperatorPrefix); clause != "" {
		match = append(match, fmt.Sprintf("destination-port %s;", clause))
	}
	if r.Fragmented {
		match = append(match, "fragment is-fragment;")
	}
	return fmt.Sprintf("match { %s } then { %s }", strings.Join(match, " "), r.Action.Serialize())
}

// BlackholeRule is the degenerate announcement dropping everything towards
// one host: match on the /32 or /128 destination, discard.
func BlackholeRule(host netip.Addr) Rule {
	var rule Rule
	rule.DestinationPrefix = model.HostPrefix(host)
	rule.Action.SetType(ActionDiscard)
	return rule
}
