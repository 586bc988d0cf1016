// Package rpc describes the tailorkeeper.v1.Records gRPC service shared by the
// client and the server. Requests and responses travel as
// google.protobuf.Struct values; the Go message types in this package are
// converted to and from Struct with Encode and Decode.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tailorkeeper.v1.Records"

const (
	MethodList               = "List"
	MethodCreate             = "Create"
	MethodUpdate             = "Update"
	MethodDelete             = "Delete"
	MethodBulkDelete         = "BulkDelete"
	MethodPresignImageUpload = "PresignImageUpload"
)

// FullMethod returns the gRPC method path, e.g. /tailorkeeper.v1.Records/List.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RecordsServer is implemented by the server transport.
type RecordsServer interface {
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkDelete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PresignImageUpload(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RecordsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		next := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}

// ServiceDesc is registered with RegisterRecordsServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodList, Handler: handler(MethodList, RecordsServer.List)},
		{MethodName: MethodCreate, Handler: handler(MethodCreate, RecordsServer.Create)},
		{MethodName: MethodUpdate, Handler: handler(MethodUpdate, RecordsServer.Update)},
		{MethodName: MethodDelete, Handler: handler(MethodDelete, RecordsServer.Delete)},
		{MethodName: MethodBulkDelete, Handler: handler(MethodBulkDelete, RecordsServer.BulkDelete)},
		{MethodName: MethodPresignImageUpload, Handler: handler(MethodPresignImageUpload, RecordsServer.PresignImageUpload)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tailorkeeper/v1/records.proto",
}

func RegisterRecordsServer(s grpc.ServiceRegistrar, srv RecordsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Invoke performs a unary call of method on conn.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
