// Package api exposes the operator surfaces: a REST API over gorilla/mux
// and a gRPC service, both read-mostly inspectors plus the manual unban
// operation.
package api

import (
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/attack"
	"github.com/mtasaka/fastnetmon/internal/engine/traffic"
	"github.com/mtasaka/fastnetmon/internal/model"
)

// Server bundles the handlers over the engine's inspection surfaces.
type Server struct {
	engine  *traffic.Engine
	manager *attack.Manager
	log     *logrus.Logger
}

// NewServer creates the API server.
func NewServer(engine *traffic.Engine, manager *attack.Manager, log *logrus.Logger) *Server {
	return &Server{engine: engine, manager: manager, log: log}
}

// Router builds the REST routes, including the Prometheus scrape endpoint.
func (s *Server) Router(registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/attacks", s.handleAttacks).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/hosts/{ip}", s.handleHost).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/unban/{ip}", s.handleUnban).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

type attackJSON struct {
	UUID            string `json:"uuid"`
	Host            string `json:"host"`
	HostGroup       string `json:"host_group"`
	ParentHostGroup string `json:"parent_host_group,omitempty"`
	Direction       string `json:"direction"`
	AttackType      string `json:"attack_type"`
	Severity        string `json:"severity"`
	Threshold       string `json:"threshold"`
	AttackPower     uint64 `json:"attack_power"`
	MaxAttackPower  uint64 `json:"max_attack_power"`
	BanTimestamp    string `json:"ban_timestamp"`
	Description     string `json:"description"`
}

func attackToJSON(a model.AttackDetails) attackJSON {
	return attackJSON{
		UUID:            a.UUID.String(),
		Host:            a.Host.String(),
		HostGroup:       a.HostGroup,
		ParentHostGroup: a.ParentHostGroup,
		Direction:       a.Direction.String(),
		AttackType:      a.Type.String(),
		Severity:        a.Severity.String(),
		Threshold:       a.Threshold.String(),
		AttackPower:     a.AttackPower,
		MaxAttackPower:  a.MaxAttackPower,
		BanTimestamp:    a.BanTimestamp.UTC().Format(time.RFC3339),
		Description:     model.AttackDescription(&a),
	}
}

func (s *Server) handleAttacks(w http.ResponseWriter, r *http.Request) {
	active := s.manager.ActiveAttacks()
	out := struct {
		Active   []attackJSON `json:"active"`
		Archived []attackJSON `json:"archived"`
	}{Active: []attackJSON{}, Archived: []attackJSON{}}
	for _, a := range active {
		out.Active = append(out.Active, attackToJSON(a))
	}
	for _, a := range s.manager.ArchivedAttacks() {
		out.Archived = append(out.Archived, attackToJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type hostRatesJSON struct {
	Host      string              `json:"host"`
	Network   string              `json:"network"`
	HostGroup string              `json:"host_group"`
	Banned    bool                `json:"banned"`
	Sections  map[string]rateJSON `json:"sections"`
}

type rateJSON struct {
	InBytes    uint64 `json:"in_bytes"`
	OutBytes   uint64 `json:"out_bytes"`
	InPackets  uint64 `json:"in_packets"`
	OutPackets uint64 `json:"out_packets"`
	InFlows    uint64 `json:"in_flows"`
	OutFlows   uint64 `json:"out_flows"`
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(mux.Vars(r)["ip"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}
	snap := s.engine.Inspect()
	rates, ok := snap.Hosts[addr.Unmap()]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "host not observed"})
		return
	}
	out := hostRatesJSON{
		Host:      rates.Addr.String(),
		Network:   rates.Network.String(),
		HostGroup: rates.HostGroup,
		Banned:    s.manager.IsBanned(addr.Unmap()),
		Sections:  make(map[string]rateJSON, int(model.NumTrafficSections)),
	}
	for section := model.TrafficSection(0); section < model.NumTrafficSections; section++ {
		rate := rates.Counters.Rate[section]
		out.Sections[section.String()] = rateJSON{
			InBytes:    rate.InBytes,
			OutBytes:   rate.OutBytes,
			InPackets:  rate.InPackets,
			OutPackets: rate.OutPackets,
			InFlows:    rate.InFlows,
			OutFlows:   rate.OutFlows,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(mux.Vars(r)["ip"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}
	removed := s.manager.Unban(addr.Unmap())
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active attack for host"})
		return
	}
	s.log.WithField("host", addr).Info("manual unban via REST API")
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
