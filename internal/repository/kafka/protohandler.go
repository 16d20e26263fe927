package kafka

import (
	"context"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return err
		}
		return handle(ctx, key, msg)
	}
}

// CheckRequestHandler decodes request-topic messages.
func CheckRequestHandler(handle func(ctx context.Context, key []byte, r CheckRequest) error) Handler {
	return ProtoHandler(func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, key []byte, s *structpb.Struct) error {
			return handle(ctx, key, CheckRequestFromProto(s))
		})
}
