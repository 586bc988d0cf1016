// Package grpc exposes the record services over the tailorkeeper.v1.Records
// gRPC service.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/rpc"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/services"
)

// RecordService is the record logic the handlers delegate to.
type RecordService interface {
	List(ctx context.Context, userID string, t models.EntityType) ([]models.Canonical, error)
	Create(ctx context.Context, userID, clientRef string, e models.Entity) (models.Canonical, error)
	Update(ctx context.Context, userID string, id int64, base time.Time, e models.Entity) (models.Canonical, error)
	Delete(ctx context.Context, userID string, t models.EntityType, id int64) error
	BulkDelete(ctx context.Context, userID string, t models.EntityType, ids []int64) (int64, error)
}

// ImageService presigns order image uploads.
type ImageService interface {
	PresignOrderImage(ctx context.Context, userID string, orderID int64, contentType string) (services.ImageUpload, error)
}

type GRPCServer struct {
	address   string
	records   RecordService
	images    ImageService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, rs RecordService, is ImageService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		records:   rs,
		images:    is,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer creates a gRPC server with the records service and its
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	rpc.RegisterRecordsServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	err := srv.Serve(lis)
	if ctx.Err() != nil {
		<-stopped
	}
	return err
}
