package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/round"
)

const (
	serviceName                = "wabisabi.Coordinator"
	registerCredentialsMethod  = "/" + serviceName + "/RegisterCredentials"
	getRoundAnnouncementMethod = "/" + serviceName + "/GetRoundAnnouncement"
)

type CoordinatorServer interface {
	RegisterCredentials(context.Context, *RegisterRequest) (*wabisabi.RegistrationResponseMessage, error)
	GetRoundAnnouncement(context.Context, *AnnouncementRequest) (*round.Announcement, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterCredentials",
			Handler:    registerCredentialsHandler,
		},
		{
			MethodName: "GetRoundAnnouncement",
			Handler:    getRoundAnnouncementHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wabisabi.proto",
}

func RegisterCoordinatorServer(s *grpc.Server, srv CoordinatorServer) {
	s.RegisterService(&serviceDesc, srv)
}

func registerCredentialsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatorServer).RegisterCredentials(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: registerCredentialsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinatorServer).RegisterCredentials(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRoundAnnouncementHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AnnouncementRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatorServer).GetRoundAnnouncement(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getRoundAnnouncementMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinatorServer).GetRoundAnnouncement(ctx, req.(*AnnouncementRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server serves the rounds of a coordinator.
type Server struct {
	coordinator *round.Coordinator
}

func NewServer(coordinator *round.Coordinator) *Server {
	return &Server{coordinator: coordinator}
}

func (s *Server) RegisterCredentials(ctx context.Context, in *RegisterRequest) (*wabisabi.RegistrationResponseMessage, error) {
	if in.Request == nil {
		return nil, status.Error(codes.InvalidArgument, "missing registration request")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	resp, err := s.coordinator.HandleRequest(in.RoundID, in.Request)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) GetRoundAnnouncement(context.Context, *AnnouncementRequest) (*round.Announcement, error) {
	return s.coordinator.Current().Announcement(), nil
}

// UnaryServerInterceptor logs every completed call with its status code.
func UnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		logger.Debug("unary call completed",
			zap.String("grpc.method", info.FullMethod),
			zap.Stringer("grpc.code", st.Code()),
			zap.Duration("grpc.call_duration", time.Since(startTime)),
			zap.Error(err))
		return resp, err
	}
}
