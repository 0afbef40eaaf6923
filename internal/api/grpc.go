package api

import (
	"context"
	"net/netip"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/mtasaka/fastnetmon/api/gen/v1"
	"github.com/mtasaka/fastnetmon/internal/attack"
	"github.com/mtasaka/fastnetmon/internal/model"
)

// GRPCServer implements the Fastnetmon control service.
type GRPCServer struct {
	v1.UnimplementedFastnetmonServer
	manager *attack.Manager
}

// NewGRPCServer creates the service implementation.
func NewGRPCServer(manager *attack.Manager) *GRPCServer {
	return &GRPCServer{manager: manager}
}

func attackToProto(a model.AttackDetails) *v1.AttackEvent {
	return &v1.AttackEvent{
		Uuid:            a.UUID.String(),
		Host:            a.Host.String(),
		Direction:       a.Direction.String(),
		AttackType:      a.Type.String(),
		HostGroup:       a.HostGroup,
		ParentHostGroup: a.ParentHostGroup,
		AttackPower:     a.AttackPower,
		MaxAttackPower:  a.MaxAttackPower,
		Threshold:       a.Threshold.String(),
		BanTimestamp:    a.BanTimestamp.Unix(),
		Description:     model.AttackDescription(&a),
	}
}

// ListActiveAttacks returns the attacks currently in force.
func (s *GRPCServer) ListActiveAttacks(ctx context.Context, req *v1.ListActiveAttacksRequest) (*v1.ListActiveAttacksResponse, error) {
	active := s.manager.ActiveAttacks()
	resp := &v1.ListActiveAttacksResponse{Attacks: make([]*v1.AttackEvent, 0, len(active))}
	for _, a := range active {
		resp.Attacks = append(resp.Attacks, attackToProto(a))
	}
	return resp, nil
}

// Unban clears an active attack for a host.
func (s *GRPCServer) Unban(ctx context.Context, req *v1.UnbanRequest) (*v1.UnbanResponse, error) {
	addr, err := netip.ParseAddr(req.GetHost())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid host address %q", req.GetHost())
	}
	return &v1.UnbanResponse{Removed: s.manager.Unban(addr.Unmap())}, nil
}
