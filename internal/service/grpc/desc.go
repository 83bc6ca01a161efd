package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName - полное имя gRPC-сервиса корзины.
const ServiceName = "cart.v1.CartService"

const (
	methodGetCart        = "/" + ServiceName + "/GetCart"
	methodAddToCart      = "/" + ServiceName + "/AddToCart"
	methodRemoveFromCart = "/" + ServiceName + "/RemoveFromCart"
	methodClearCart      = "/" + ServiceName + "/ClearCart"
)

// CartServiceServer - серверная сторона cart.v1.CartService.
// Сообщения описаны well-known типами protobuf, поэтому отдельный .proto не нужен.
type CartServiceServer interface {
	GetCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddToCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveFromCart(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ClearCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// CartServiceDesc описывает сервис для grpc.Server.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCart", Handler: getCartHandler},
		{MethodName: "AddToCart", Handler: addToCartHandler},
		{MethodName: "RemoveFromCart", Handler: removeFromCartHandler},
		{MethodName: "ClearCart", Handler: clearCartHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cart/v1/cart.proto",
}

// RegisterCartServiceServer регистрирует реализацию на сервере.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func getCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).GetCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetCart}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).GetCart(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func addToCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).AddToCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAddToCart}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).AddToCart(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func removeFromCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).RemoveFromCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRemoveFromCart}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).RemoveFromCart(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func clearCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartServiceServer).ClearCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClearCart}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CartServiceServer).ClearCart(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
