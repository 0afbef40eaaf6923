package traffic

import (
	"sync/atomic"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// atomicCounterElement is the hot-path form of model.CounterElement:
// ingest workers bump the fields without taking any lock.
type atomicCounterElement struct {
	inBytes  atomic.Uint64
	outBytes atomic.Uint64

	inPackets  atomic.Uint64
	outPackets atomic.Uint64

	inFlows  atomic.Uint64
	outFlows atomic.Uint64
}

func (c *atomicCounterElement) load() model.CounterElement {
	return model.CounterElement{
		InBytes:    c.inBytes.Load(),
		OutBytes:   c.outBytes.Load(),
		InPackets:  c.inPackets.Load(),
		OutPackets: c.outPackets.Load(),
		InFlows:    c.inFlows.Load(),
		OutFlows:   c.outFlows.Load(),
	}
}

// counterSet is one accounting bucket. The raw section is written by any
// number of ingest workers through atomics; prev, rate and average belong
// to the tick driver alone.
type counterSet struct {
	raw [model.NumTrafficSections]atomicCounterElement

	prev    [model.NumTrafficSections]model.CounterElement
	rate    [model.NumTrafficSections]model.CounterElement
	average [model.NumTrafficSections]model.AverageElement
}

func (s *counterSet) account(section model.TrafficSection, dir model.Direction, bytes, packets uint64) {
	e := &s.raw[section]
	if dir == model.DirectionIncoming {
		e.inBytes.Add(bytes)
		e.inPackets.Add(packets)
	} else {
		e.outBytes.Add(bytes)
		e.outPackets.Add(packets)
	}
}

func (s *counterSet) accountFlow(section model.TrafficSection, dir model.Direction) {
	e := &s.raw[section]
	if dir == model.DirectionIncoming {
		e.inFlows.Add(1)
	} else {
		e.outFlows.Add(1)
	}
}

// rotate snapshots the raw counters, derives the one-second delta and folds
// it into the moving average. Must only be called from the tick driver.
func (s *counterSet) rotate(alpha float64) model.SubnetCounter {
	var out model.SubnetCounter
	for i := range s.raw {
		raw := s.raw[i].load()
		delta := raw.Sub(s.prev[i])
		s.prev[i] = raw
		s.rate[i] = delta
		s.average[i].Update(delta, alpha)

		out.Raw[i] = raw
		out.Rate[i] = delta
		out.Average[i] = s.average[i]
	}
	return out
}
