package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// BattleServiceName is the fully qualified gRPC service name.
const BattleServiceName = "lanebattle.v1.BattleService"

// BattleServiceServer is the server API of BattleService. Requests and
// responses are google.protobuf.Struct documents so clients in any language
// can talk to the service without generated stubs.
type BattleServiceServer interface {
	StartBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	NextRound(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PlaceCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AutoPlace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResolveCombat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResetBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EndBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBattles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv BattleServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + BattleServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BattleServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BattleServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BattleServiceDesc describes BattleService for grpc.Server.RegisterService.
var BattleServiceDesc = grpc.ServiceDesc{
	ServiceName: BattleServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("StartBattle", BattleServiceServer.StartBattle),
		methodDesc("NextRound", BattleServiceServer.NextRound),
		methodDesc("PlaceCard", BattleServiceServer.PlaceCard),
		methodDesc("AutoPlace", BattleServiceServer.AutoPlace),
		methodDesc("ResolveCombat", BattleServiceServer.ResolveCombat),
		methodDesc("GetState", BattleServiceServer.GetState),
		methodDesc("ResetBattle", BattleServiceServer.ResetBattle),
		methodDesc("EndBattle", BattleServiceServer.EndBattle),
		methodDesc("ListBattles", BattleServiceServer.ListBattles),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lanebattle/v1/battle.proto",
}

// RegisterBattleServiceServer registers srv with s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&BattleServiceDesc, srv)
}

// BattleServiceClient calls BattleService methods by name.
type BattleServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBattleServiceClient wraps a client connection.
func NewBattleServiceClient(cc grpc.ClientConnInterface) *BattleServiceClient {
	return &BattleServiceClient{cc: cc}
}

// Call invokes method with req and returns the response document.
func (c *BattleServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+BattleServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
