package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/callslot/callslot/services/availability-service/internal/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName           = "availability.v1.AvailabilityService"
	GetAvailabilityMethod = "/" + ServiceName + "/GetAvailability"
)

// AvailabilityServer speaks google.protobuf.Struct on the wire so no generated stubs are needed.
//
// Request fields: username, date, timezone_offset_minutes (optional).
// Response fields: possible_times, availability_times.
type AvailabilityServer interface {
	GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: getAvailabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "availability/v1/availability.proto",
}

func getAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetAvailabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type Computer interface {
	Compute(ctx context.Context, q availability.Query) (availability.Result, error)
}

type server struct {
	engine        Computer
	logger        *slog.Logger
	requireOffset bool
}

// Register installs the availability service and the standard health service on grpcServer.
func Register(grpcServer *grpc.Server, engine Computer, logger *slog.Logger, requireOffset bool) *health.Server {
	grpcServer.RegisterService(&ServiceDesc, &server{engine: engine, logger: logger, requireOffset: requireOffset})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

func (s *server) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	offset, err := offsetField(fields["timezone_offset_minutes"])
	if err != nil {
		metrics.IncRequest("grpc", "invalid_request")
		return nil, status.Error(codes.InvalidArgument, "invalid timezone_offset_minutes")
	}

	q, err := availability.ParseQuery(fields["username"].GetStringValue(), fields["date"].GetStringValue(), offset, s.requireOffset)
	if err != nil {
		metrics.IncRequest("grpc", availability.Outcome(err))
		return nil, toStatus(err).Err()
	}

	res, err := s.engine.Compute(ctx, q)
	if err != nil {
		metrics.IncRequest("grpc", availability.Outcome(err))
		st := toStatus(err)
		if st.Code() == codes.Unavailable || st.Code() == codes.Internal {
			s.logger.Error("availability rpc failed", "err", err, "user", q.Username, "date", q.Date.Format(availability.DateLayout))
		}
		return nil, st.Err()
	}

	out, err := structpb.NewStruct(map[string]any{
		"possible_times":     intList(res.PossibleTimes),
		"availability_times": intList(res.AvailabilityTimes),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	metrics.IncRequest("grpc", "ok")
	return out, nil
}

// offsetField renders the optional offset the way the HTTP query string carries it.
func offsetField(v *structpb.Value) (string, error) {
	if v == nil {
		return "", nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return "", errors.New("offset must be a whole number of minutes")
		}
		return strconv.FormatInt(int64(n), 10), nil
	default:
		return "", errors.New("offset must be a number")
	}
}

func intList(hours []int) []any {
	out := make([]any, 0, len(hours))
	for _, h := range hours {
		out = append(out, h)
	}
	return out
}

func toStatus(err error) *status.Status {
	var pe *availability.ParamError
	switch {
	case errors.As(err, &pe):
		return status.New(codes.InvalidArgument, pe.Message)
	case errors.Is(err, availability.ErrUserNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, availability.ErrUpstreamLookup):
		return status.New(codes.Unavailable, "availability temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "availability lookup timed out")
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request canceled")
	default:
		return status.New(codes.Internal, "internal error")
	}
}
