package rollserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/observability"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "dicebot.v1.RollService"

const (
	rollMethod    = "/" + ServiceName + "/Roll"
	historyMethod = "/" + ServiceName + "/History"
)

// RollServiceServer is the server API for dicebot.v1.RollService. Requests and
// responses are google.protobuf.Struct messages:
//
//	Roll    {roller, formula} -> {id, roller, formula, canonical, results, total, created_at}
//	History {roller, limit}   -> {rolls: [...]}
type RollServiceServer interface {
	Roll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RollServiceDesc describes dicebot.v1.RollService for grpc.Server registration.
var RollServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RollServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Roll", Handler: unaryHandler(rollMethod, RollServiceServer.Roll)},
		{MethodName: "History", Handler: unaryHandler(historyMethod, RollServiceServer.History)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dicebot/v1/roll.proto",
}

func unaryHandler(fullMethod string, call func(RollServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RollServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RollServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterRollService registers svc on s as dicebot.v1.RollService.
//
// Precondition: s and svc must be non-nil.
func RegisterRollService(s grpc.ServiceRegistrar, svc *Service, logger *zap.Logger) {
	s.RegisterService(&RollServiceDesc, &grpcServer{svc: svc, logger: logger})
}

// grpcServer adapts Service to RollServiceServer.
type grpcServer struct {
	svc    *Service
	logger *zap.Logger
}

func (g *grpcServer) Roll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roller := req.GetFields()["roller"].GetStringValue()
	formula := req.GetFields()["formula"].GetStringValue()
	rec, err := g.svc.Roll(WithOrigin(ctx, observability.OriginRPC), roller, formula)
	if err != nil {
		return nil, g.toStatus("Roll", err)
	}
	out, err := structpb.NewStruct(recordFields(rec))
	if err != nil {
		return nil, g.toStatus("Roll", err)
	}
	return out, nil
}

func (g *grpcServer) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roller := req.GetFields()["roller"].GetStringValue()
	limit := int(req.GetFields()["limit"].GetNumberValue())
	recs, err := g.svc.History(ctx, roller, limit)
	if err != nil {
		return nil, g.toStatus("History", err)
	}
	rolls := make([]any, len(recs))
	for i, rec := range recs {
		rolls[i] = recordFields(rec)
	}
	out, err := structpb.NewStruct(map[string]any{"rolls": rolls})
	if err != nil {
		return nil, g.toStatus("History", err)
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC status codes.
func (g *grpcServer) toStatus(method string, err error) error {
	var perr *dice.ParseError
	switch {
	case errors.As(err, &perr), errors.Is(err, ErrFormulaTooLong):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrUnknownMacro):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		g.logger.Error("roll service failure", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func recordFields(rec history.Record) map[string]any {
	return map[string]any{
		"id":         rec.ID.String(),
		"roller":     rec.Roller,
		"formula":    rec.Formula,
		"canonical":  rec.Canonical,
		"results":    rec.Results,
		"total":      rec.Total,
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
	}
}

func recordFromStruct(s *structpb.Struct) (history.Record, error) {
	f := s.GetFields()
	id, err := uuid.Parse(f["id"].GetStringValue())
	if err != nil {
		return history.Record{}, fmt.Errorf("decoding roll id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue())
	if err != nil {
		return history.Record{}, fmt.Errorf("decoding roll time: %w", err)
	}
	return history.Record{
		ID:        id,
		Roller:    f["roller"].GetStringValue(),
		Formula:   f["formula"].GetStringValue(),
		Canonical: f["canonical"].GetStringValue(),
		Results:   f["results"].GetStringValue(),
		Total:     int(f["total"].GetNumberValue()),
		CreatedAt: createdAt,
	}, nil
}

// Client is a typed client for dicebot.v1.RollService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
//
// Precondition: cc must be non-nil.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Roll rolls formula for roller on the server.
func (c *Client) Roll(ctx context.Context, roller, formula string, opts ...grpc.CallOption) (history.Record, error) {
	in, err := structpb.NewStruct(map[string]any{"roller": roller, "formula": formula})
	if err != nil {
		return history.Record{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, rollMethod, in, out, opts...); err != nil {
		return history.Record{}, err
	}
	return recordFromStruct(out)
}

// History fetches up to limit of roller's recent rolls, newest first.
func (c *Client) History(ctx context.Context, roller string, limit int, opts ...grpc.CallOption) ([]history.Record, error) {
	in, err := structpb.NewStruct(map[string]any{"roller": roller, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, historyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	values := out.GetFields()["rolls"].GetListValue().GetValues()
	recs := make([]history.Record, 0, len(values))
	for _, v := range values {
		rec, err := recordFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
