// Package resolver attributes addresses to configured host groups via
// longest-prefix match over patricia trees. The active configuration
// generation is immutable and swapped atomically on reload, so lookups are
// lock-free on the hot path.
package resolver

import (
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/model"
	"github.com/mtasaka/fastnetmon/internal/patricia"
)

// Result is a successful attribution of an address to a customer network.
type Result struct {
	Network         netip.Prefix
	HostGroup       string
	ParentHostGroup string
}

// membership is the payload behind a patricia value index.
type membership struct {
	network netip.Prefix
	group   string
	parent  string
}

// generation is one immutable configuration snapshot.
type generation struct {
	tree4 *patricia.Tree
	tree6 *patricia.Tree

	monitored4 *patricia.Tree
	monitored6 *patricia.Tree

	members []membership
	groups  map[string]model.HostGroup
}

// Resolver maps addresses to host groups. Safe for concurrent use; Load
// publishes a whole new generation at once.
type Resolver struct {
	gen atomic.Pointer[generation]
	log *logrus.Logger
}

// New returns a resolver with an empty configuration generation.
func New(log *logrus.Logger) *Resolver {
	r := &Resolver{log: log}
	empty := &generation{
		tree4:      patricia.New(32),
		tree6:      patricia.New(128),
		monitored4: patricia.New(32),
		monitored6: patricia.New(128),
		groups:     map[string]model.HostGroup{},
	}
	r.gen.Store(empty)
	return r
}

// Load validates a host-group forest plus the monitored networks list,
// builds the lookup trees offline and swaps them in atomically. On any
// validation error the previous generation keeps serving.
func (r *Resolver) Load(groups []model.HostGroup, networks []netip.Prefix) error {
	next := &generation{
		tree4:      patricia.New(32),
		tree6:      patricia.New(128),
		monitored4: patricia.New(32),
		monitored6: patricia.New(128),
		groups:     make(map[string]model.HostGroup, len(groups)+1),
	}

	for _, g := range groups {
		if g.Name == "" {
			return fmt.Errorf("host group with empty name")
		}
		if g.Name == model.UnknownHostGroupName {
			return fmt.Errorf("host group name %q is reserved", g.Name)
		}
		if _, dup := next.groups[g.Name]; dup {
			return fmt.Errorf("duplicate host group %q", g.Name)
		}
		next.groups[g.Name] = g
	}
	next.groups[model.UnknownHostGroupName] = model.HostGroup{Name: model.UnknownHostGroupName}

	seen := make(map[netip.Prefix]string)
	for _, g := range groups {
		if g.Parent != "" {
			if _, ok := next.groups[g.Parent]; !ok {
				return fmt.Errorf("host group %q references unknown parent %q", g.Name, g.Parent)
			}
		}
		for _, raw := range g.Networks {
			network := model.NormalizePrefix(raw)
			if owner, dup := seen[network]; dup {
				return fmt.Errorf("network %s claimed by both %q and %q", network, owner, g.Name)
			}
			seen[network] = g.Name

			next.members = append(next.members, membership{network: network, group: g.Name, parent: g.Parent})
			value := uint32(len(next.members) - 1)
			tree := next.tree4
			if network.Addr().Is6() {
				tree = next.tree6
			}
			if err := tree.Insert(network, value); err != nil {
				return fmt.Errorf("host group %q: %w", g.Name, err)
			}
		}
	}

	for _, raw := range networks {
		network := model.NormalizePrefix(raw)
		tree := next.monitored4
		if network.Addr().Is6() {
			tree = next.monitored6
		}
		if err := tree.Insert(network, 0); err != nil {
			return fmt.Errorf("networks_list: %w", err)
		}
	}

	r.gen.Store(next)
	r.log.WithFields(logrus.Fields{
		"groups":   len(groups),
		"prefixes": next.tree4.Len() + next.tree6.Len(),
		"networks": len(networks),
	}).Info("host group configuration published")
	return nil
}

func (g *generation) trees(addr netip.Addr) (groupTree, monitoredTree *patricia.Tree) {
	if addr.Unmap().Is4() {
		return g.tree4, g.monitored4
	}
	return g.tree6, g.monitored6
}

// Monitored reports whether the address falls inside the configured
// monitored space. Packets outside it are dropped before resolution.
func (r *Resolver) Monitored(addr netip.Addr) bool {
	_, monitored := r.gen.Load().trees(addr)
	if monitored.Len() == 0 {
		return false
	}
	_, _, ok := monitored.SearchBest(addr, true)
	return ok
}

// Resolve attributes an address to its owning network and host group. A
// monitored address not covered by any group resolves to the synthetic
// __unknown group over its host prefix.
func (r *Resolver) Resolve(addr netip.Addr) (Result, bool) {
	gen := r.gen.Load()
	tree, _ := gen.trees(addr)
	network, value, ok := tree.SearchBest(addr, true)
	if !ok {
		return Result{
			Network:   model.HostPrefix(addr),
			HostGroup: model.UnknownHostGroupName,
		}, false
	}
	m := gen.members[value]
	return Result{Network: network, HostGroup: m.group, ParentHostGroup: m.parent}, true
}

// EffectiveBanSettings returns the ban policy in force for a host group:
// the group's own settings when banning is enabled there, otherwise the
// parent's (one link at most). The __unknown group is always disabled.
func (r *Resolver) EffectiveBanSettings(group string) model.BanSettings {
	gen := r.gen.Load()
	g, ok := gen.groups[group]
	if !ok {
		return model.BanSettings{}
	}
	if g.Ban.Enabled() || g.Parent == "" {
		return g.Ban
	}
	if parent, ok := gen.groups[g.Parent]; ok {
		return parent.Ban
	}
	return g.Ban
}

// Groups returns the names of all configured groups in the active
// generation, including the synthetic __unknown group.
func (r *Resolver) Groups() []string {
	gen := r.gen.Load()
	names := make([]string, 0, len(gen.groups))
	for name := range gen.groups {
		names = append(names, name)
	}
	return names
}

// WalkNetworks visits every configured customer network in the active
// generation, for export surfaces.
func (r *Resolver) WalkNetworks(visit func(network netip.Prefix, group string)) {
	gen := r.gen.Load()
	walk := func(t *patricia.Tree) {
		t.Walk(func(prefix netip.Prefix, value uint32) {
			visit(prefix, gen.members[value].group)
		})
	}
	walk(gen.tree4)
	walk(gen.tree6)
}
