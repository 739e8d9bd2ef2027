// Package workerapi is the gRPC surface automation workers use to report on
// the sessions they serve. Messages travel as google.protobuf.Struct so the
// service needs no generated code.
package workerapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "portalops.worker.v1.WorkerCallback"

// Full method names
const (
	MethodAttachWorker = "/" + ServiceName + "/AttachWorker"
	MethodCloseSession = "/" + ServiceName + "/CloseSession"
	MethodGetSession   = "/" + ServiceName + "/GetSession"
)

// Message field names
const (
	fieldSessionID = "session_id"
	fieldViewerURL = "viewer_url"
	fieldWorkerID  = "worker_id"
	fieldID        = "id"
	fieldTaskID    = "task_id"
	fieldStatus    = "status"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldClosedAt  = "closed_at"
)

// WorkerCallbackServer is the server API for the WorkerCallback service
type WorkerCallbackServer interface {
	AttachWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterWorkerCallbackServer registers srv with a gRPC server
func RegisterWorkerCallbackServer(s grpc.ServiceRegistrar, srv WorkerCallbackServer) {
	s.RegisterService(&workerCallbackServiceDesc, srv)
}

type unaryCall func(srv WorkerCallbackServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorkerCallbackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(WorkerCallbackServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var workerCallbackServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkerCallbackServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AttachWorker",
			Handler: unaryHandler(MethodAttachWorker, func(srv WorkerCallbackServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.AttachWorker(ctx, req)
			}),
		},
		{
			MethodName: "CloseSession",
			Handler: unaryHandler(MethodCloseSession, func(srv WorkerCallbackServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.CloseSession(ctx, req)
			}),
		},
		{
			MethodName: "GetSession",
			Handler: unaryHandler(MethodGetSession, func(srv WorkerCallbackServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetSession(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "portalops/worker/v1/callback.proto",
}
