// Package traffic maintains rolling per-host, per-subnet and per-hostgroup
// traffic counters at one-second granularity. Ingest workers feed packet
// records through Record with no cross-worker synchronisation beyond
// per-shard insertion locks and per-counter atomics; a single tick driver
// rotates the counters once per second and publishes an immutable snapshot
// for the inspection path.
package traffic

import (
	"math"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/resolver"
)

// Config tunes the counter engine.
type Config struct {
	// AverageWindow is the EMA time constant tau.
	AverageWindow time.Duration
	// ShardCount splits the host map to keep insertion contention low.
	ShardCount int
	// MaxHostsPerGroup caps distinct hosts per host group; excess hosts are
	// folded into their subnet bucket.
	MaxHostsPerGroup int
	// ConntrackCapacity sizes the per-host flow sketch.
	ConntrackCapacity int
	// IdleTimeout garbage-collects hosts not observed for this long.
	// Zero disables collection.
	IdleTimeout time.Duration
}

const (
	defaultShardCount        = 64
	defaultAverageWindow     = 15 * time.Second
	defaultConntrackCapacity = 2048
)

func (c *Config) applyDefaults() {
	if c.AverageWindow <= 0 {
		c.AverageWindow = defaultAverageWindow
	}
	if c.ShardCount <= 0 {
		c.ShardCount = defaultShardCount
	}
	if c.ConntrackCapacity <= 0 {
		c.ConntrackCapacity = defaultConntrackCapacity
	}
}

type hostEntry struct {
	addr    netip.Addr
	network netip.Prefix
	group   string
	parent  string

	counters counterSet
	flows    *Conntrack
	lastSeen atomic.Int64
}

type shard struct {
	mu    sync.RWMutex
	hosts map[netip.Addr]*hostEntry
}

type groupEntry struct {
	counters counterSet
	hosts    atomic.Int64
}

// HostRates is the published per-host view as of one tick boundary.
type HostRates struct {
	Addr            netip.Addr
	Network         netip.Prefix
	HostGroup       string
	ParentHostGroup string
	Counters        model.SubnetCounter
}

// Snapshot is the immutable engine view swapped in once per tick. Readers
// never observe a partially rotated state.
type Snapshot struct {
	TakenAt  time.Time
	Sequence uint64

	Hosts   map[netip.Addr]*HostRates
	Subnets map[netip.Prefix]model.SubnetCounter
	Groups  map[string]model.SubnetCounter
	Total   model.SubnetCounter
}

// Engine is the counter engine. Record may be called from any number of
// ingest workers; Tick must be driven by exactly one goroutine.
type Engine struct {
	cfg      Config
	alpha    float64
	resolver *resolver.Resolver
	log      *logrus.Logger

	shards []*shard

	subnetsMu sync.Mutex
	subnets   map[netip.Prefix]*counterSet

	groupsMu sync.Mutex
	groups   map[string]*groupEntry

	total counterSet

	epoch    atomic.Uint32
	sequence uint64
	snapshot atomic.Pointer[Snapshot]

	droppedOutside atomic.Uint64
	foldedHosts    atomic.Uint64
}

// New creates a counter engine over the given resolver.
func New(cfg Config, res *resolver.Resolver, log *logrus.Logger) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		cfg:      cfg,
		alpha:    1 - math.Exp(-1/cfg.AverageWindow.Seconds()),
		resolver: res,
		log:      log,
		shards:   make([]*shard, cfg.ShardCount),
		subnets:  make(map[netip.Prefix]*counterSet),
		groups:   make(map[string]*groupEntry),
	}
	for i := range e.shards {
		e.shards[i] = &shard{hosts: make(map[netip.Addr]*hostEntry)}
	}
	e.snapshot.Store(&Snapshot{
		Hosts:   map[netip.Addr]*HostRates{},
		Subnets: map[netip.Prefix]model.SubnetCounter{},
		Groups:  map[string]model.SubnetCounter{},
	})
	return e
}

// Alpha returns the EMA smoothing factor in force.
func (e *Engine) Alpha() float64 {
	return e.alpha
}

// Consume implements model.PacketSink.
func (e *Engine) Consume(pkt *model.SimplePacket) {
	e.Record(pkt)
}

// Record attributes one packet record to the counters of the source host
// (outgoing direction) and the destination host (incoming direction).
// Addresses outside the monitored space are skipped.
func (e *Engine) Record(pkt *model.SimplePacket) {
	ratio := uint64(pkt.SampleRatio)
	if ratio == 0 {
		ratio = 1
	}
	bytes := pkt.Bytes * ratio
	packets := pkt.Packets * ratio

	var sectionBuf [4]model.TrafficSection
	sections := appendSections(sectionBuf[:0], pkt)

	srcMonitored := e.resolver.Monitored(pkt.SrcAddr)
	dstMonitored := e.resolver.Monitored(pkt.DstAddr)
	if !srcMonitored && !dstMonitored {
		e.droppedOutside.Add(1)
		return
	}
	if srcMonitored {
		e.accountSide(pkt.SrcAddr, model.DirectionOutgoing, pkt, sections, bytes, packets)
	}
	if dstMonitored {
		e.accountSide(pkt.DstAddr, model.DirectionIncoming, pkt, sections, bytes, packets)
	}
}

func appendSections(buf []model.TrafficSection, p *model.SimplePacket) []model.TrafficSection {
	buf = append(buf, model.SectionTotal)
	switch p.Protocol {
	case model.ProtocolTCP:
		buf = append(buf, model.SectionTCP)
		if p.SYNOnly() {
			buf = append(buf, model.SectionTCPSyn)
		}
	case model.ProtocolUDP:
		buf = append(buf, model.SectionUDP)
	case model.ProtocolICMP, model.ProtocolICMPv6:
		buf = append(buf, model.SectionICMP)
	}
	if p.Fragmented {
		buf = append(buf, model.SectionFragmented)
	}
	return buf
}

func (e *Engine) accountSide(addr netip.Addr, dir model.Direction, pkt *model.SimplePacket,
	sections []model.TrafficSection, bytes, packets uint64) {

	res, _ := e.resolver.Resolve(addr)

	group := e.groupEntry(res.HostGroup)
	subnet := e.subnetBucket(res.Network)
	host := e.hostEntry(addr, res)

	newFlow := false
	if host != nil {
		ts := pkt.TimestampNs
		if ts == 0 {
			ts = time.Now().UnixNano()
		}
		host.lastSeen.Store(ts)
		newFlow = host.flows.Observe(tupleHash(pkt), e.epoch.Load())
	}

	for _, section := range sections {
		if host != nil {
			host.counters.account(section, dir, bytes, packets)
		}
		subnet.account(section, dir, bytes, packets)
		group.counters.account(section, dir, bytes, packets)
		e.total.account(section, dir, bytes, packets)
		if newFlow {
			host.counters.accountFlow(section, dir)
			subnet.accountFlow(section, dir)
			group.counters.accountFlow(section, dir)
			e.total.accountFlow(section, dir)
		}
	}
}

func shardIndex(addr netip.Addr, count int) int {
	h := uint64(fnvOffset64)
	b := addr.As16()
	for _, v := range b {
		h = (h ^ uint64(v)) * fnvPrime64
	}
	return int(h % uint64(count))
}

// hostEntry returns the per-host bucket, creating it unless the host group
// is at its configured ceiling, in which case traffic stays folded into the
// subnet bucket.
func (e *Engine) hostEntry(addr netip.Addr, res resolver.Result) *hostEntry {
	sh := e.shards[shardIndex(addr, len(e.shards))]
	sh.mu.RLock()
	host := sh.hosts[addr]
	sh.mu.RUnlock()
	if host != nil {
		return host
	}

	group := e.groupEntry(res.HostGroup)
	if e.cfg.MaxHostsPerGroup > 0 && group.hosts.Load() >= int64(e.cfg.MaxHostsPerGroup) {
		e.foldedHosts.Add(1)
		return nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if host = sh.hosts[addr]; host != nil {
		return host
	}
	host = &hostEntry{
		addr:    addr,
		network: res.Network,
		group:   res.HostGroup,
		parent:  res.ParentHostGroup,
		flows:   NewConntrack(e.cfg.ConntrackCapacity),
	}
	sh.hosts[addr] = host
	group.hosts.Add(1)
	return host
}

func (e *Engine) groupEntry(name string) *groupEntry {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()
	g, ok := e.groups[name]
	if !ok {
		g = &groupEntry{}
		e.groups[name] = g
	}
	return g
}

func (e *Engine) subnetBucket(network netip.Prefix) *counterSet {
	e.subnetsMu.Lock()
	defer e.subnetsMu.Unlock()
	s, ok := e.subnets[network]
	if !ok {
		s = &counterSet{}
		e.subnets[network] = s
	}
	return s
}

// Tick rotates every live counter bucket, collects idle hosts and publishes
// a fresh snapshot. Call exactly once per second from a single driver.
func (e *Engine) Tick(now time.Time) {
	e.epoch.Add(1)
	e.sequence++

	snap := &Snapshot{
		TakenAt:  now,
		Sequence: e.sequence,
		Hosts:    make(map[netip.Addr]*HostRates),
		Subnets:  make(map[netip.Prefix]model.SubnetCounter),
		Groups:   make(map[string]model.SubnetCounter),
	}

	var cutoff int64
	if e.cfg.IdleTimeout > 0 {
		cutoff = now.Add(-e.cfg.IdleTimeout).UnixNano()
	}

	for _, sh := range e.shards {
		sh.mu.RLock()
		entries := make([]*hostEntry, 0, len(sh.hosts))
		for _, h := range sh.hosts {
			entries = append(entries, h)
		}
		sh.mu.RUnlock()

		var expired []netip.Addr
		for _, h := range entries {
			counters := h.counters.rotate(e.alpha)
			if cutoff != 0 && h.lastSeen.Load() < cutoff {
				expired = append(expired, h.addr)
				continue
			}
			snap.Hosts[h.addr] = &HostRates{
				Addr:            h.addr,
				Network:         h.network,
				HostGroup:       h.group,
				ParentHostGroup: h.parent,
				Counters:        counters,
			}
		}

		if len(expired) > 0 {
			sh.mu.Lock()
			for _, addr := range expired {
				h, ok := sh.hosts[addr]
				if !ok || (cutoff != 0 && h.lastSeen.Load() >= cutoff) {
					continue
				}
				delete(sh.hosts, addr)
				e.groupEntry(h.group).hosts.Add(-1)
			}
			sh.mu.Unlock()
		}
	}

	e.subnetsMu.Lock()
	for network, set := range e.subnets {
		snap.Subnets[network] = set.rotate(e.alpha)
	}
	e.subnetsMu.Unlock()

	e.groupsMu.Lock()
	for name, g := range e.groups {
		snap.Groups[name] = g.counters.rotate(e.alpha)
	}
	e.groupsMu.Unlock()

	snap.Total = e.total.rotate(e.alpha)

	e.snapshot.Store(snap)
}

// Inspect returns the most recently published snapshot. Safe from any
// goroutine.
func (e *Engine) Inspect() *Snapshot {
	return e.snapshot.Load()
}

// Stats exposes counters for the self-instrumentation surface.
type Stats struct {
	Hosts          int
	DroppedOutside uint64
	FoldedHosts    uint64
}

// CollectStats gathers engine gauges.
func (e *Engine) CollectStats() Stats {
	hosts := 0
	for _, sh := range e.shards {
		sh.mu.RLock()
		hosts += len(sh.hosts)
		sh.mu.RUnlock()
	}
	return Stats{
		Hosts:          hosts,
		DroppedOutside: e.droppedOutside.Load(),
		FoldedHosts:    e.foldedHosts.Load(),
	}
}
