package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/rpc"
)

// toStatus maps service errors onto gRPC status codes.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var ce *models.ConflictError
	switch {
	case errors.As(err, &ce):
		return rpc.ConflictStatus(ce)
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidRecord),
		errors.Is(err, common.ErrUnknownEntity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrInvalidReference),
		errors.Is(err, common.ErrHasDependents):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

// call decodes the request into req, runs fn for the authenticated owner and
// encodes its result.
func call[Req any](s *GRPCServer, ctx context.Context, in *structpb.Struct, req *Req, fn func(userID string) (any, error)) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if err := rpc.Decode(in, req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := fn(userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out, err := rpc.Encode(resp)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

func checkType(t models.EntityType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
	}
	return nil
}

func (s *GRPCServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.ListRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		if err := checkType(req.Entity); err != nil {
			return nil, err
		}
		list, err := s.records.List(ctx, userID, req.Entity)
		if err != nil {
			return nil, err
		}
		resp := rpc.ListResponse{Records: make([]rpc.Record, 0, len(list))}
		for _, c := range list {
			rec, err := rpc.FromCanonical(c)
			if err != nil {
				return nil, err
			}
			resp.Records = append(resp.Records, rec)
		}
		return resp, nil
	})
}

func recordResponse(c models.Canonical, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	rec, err := rpc.FromCanonical(c)
	if err != nil {
		return nil, err
	}
	return rpc.RecordResponse{Record: rec}, nil
}

func (s *GRPCServer) Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.CreateRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		e, err := models.Unmarshal(req.Entity, req.Fields)
		if err != nil {
			return nil, err
		}
		return recordResponse(s.records.Create(ctx, userID, req.ClientRef, e))
	})
}

func (s *GRPCServer) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.UpdateRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		e, err := models.Unmarshal(req.Entity, req.Fields)
		if err != nil {
			return nil, err
		}
		return recordResponse(s.records.Update(ctx, userID, req.ID, req.BaseVersion, e))
	})
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.DeleteRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		if err := checkType(req.Entity); err != nil {
			return nil, err
		}
		if err := s.records.Delete(ctx, userID, req.Entity, req.ID); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})
}

func (s *GRPCServer) BulkDelete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.BulkDeleteRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		if err := checkType(req.Entity); err != nil {
			return nil, err
		}
		n, err := s.records.BulkDelete(ctx, userID, req.Entity, req.IDs)
		if err != nil {
			return nil, err
		}
		return rpc.BulkDeleteResponse{Deleted: n}, nil
	})
}

func (s *GRPCServer) PresignImageUpload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req rpc.PresignRequest
	return call(s, ctx, in, &req, func(userID string) (any, error) {
		up, err := s.images.PresignOrderImage(ctx, userID, req.OrderID, req.ContentType)
		if err != nil {
			return nil, err
		}
		return rpc.PresignResponse{UploadURL: up.UploadURL, ObjectURL: up.ObjectURL, ExpiresAt: up.ExpiresAt}, nil
	})
}

var _ rpc.RecordsServer = (*GRPCServer)(nil)
