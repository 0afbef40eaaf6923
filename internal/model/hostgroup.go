package model

import "net/netip"

// UnknownHostGroupName is the synthetic group that receives traffic for
// monitored addresses not covered by any configured host group. Its
// thresholds are always disabled.
const UnknownHostGroupName = "__unknown"

// BanSettings is the flat bundle of per-metric enable flags and thresholds
// attached to a host group. A disabled rule never fires regardless of its
// numeric threshold. The zero value disables everything.
type BanSettings struct {
	EnableBan bool

	EnableBanForPPS       bool
	EnableBanForBandwidth bool
	EnableBanForFlows     bool

	EnableBanForTCPPPS       bool
	EnableBanForTCPBandwidth bool

	EnableBanForUDPPPS       bool
	EnableBanForUDPBandwidth bool

	EnableBanForICMPPPS       bool
	EnableBanForICMPBandwidth bool

	ThresholdPPS   uint64
	ThresholdMbps  uint64
	ThresholdFlows uint64

	ThresholdTCPPPS  uint64
	ThresholdTCPMbps uint64

	ThresholdUDPPPS  uint64
	ThresholdUDPMbps uint64

	ThresholdICMPPPS  uint64
	ThresholdICMPMbps uint64
}

// Enabled reports the bundle's master switch (EnableBan). When it is false
// no rule fires; when it is true each rule still needs its own enable flag.
func (b BanSettings) Enabled() bool {
	return b.EnableBan
}

// HostGroup is a named set of customer networks sharing one detection
// policy. Groups form a forest: a group may name one parent whose policy is
// consulted when the group itself has banning disabled.
type HostGroup struct {
	Name     string
	Parent   string
	Networks []netip.Prefix
	Ban      BanSettings
}
