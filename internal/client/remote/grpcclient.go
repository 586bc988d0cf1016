package remote

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/rpc"
)

// GRPCClient implements Remote over a gRPC connection.
type GRPCClient struct {
	conn   grpc.ClientConnInterface
	closer func() error
	token  string
}

func withToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.token != "" {
		ctx = withToken(ctx, c.token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// Dial creates a client for the server at endpoint. The connection is
// established lazily; no network traffic happens here.
func Dial(endpoint, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{token: token}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.tokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client: %w", err)
	}
	c.conn = conn
	c.closer = conn.Close
	return c, nil
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	in, err := rpc.Encode(req)
	if err != nil {
		return err
	}
	out, err := rpc.Invoke(ctx, c.conn, method, in)
	if err != nil {
		return mapError(err)
	}
	if resp == nil {
		return nil
	}
	return rpc.Decode(out, resp)
}

func (c *GRPCClient) List(ctx context.Context, t models.EntityType) ([]models.Canonical, error) {
	var resp rpc.ListResponse
	if err := c.call(ctx, rpc.MethodList, rpc.ListRequest{Entity: t}, &resp); err != nil {
		return nil, err
	}

	result := make([]models.Canonical, 0, len(resp.Records))
	for _, r := range resp.Records {
		cn, err := r.Canonical()
		if err != nil {
			return nil, err
		}
		result = append(result, cn)
	}
	return result, nil
}

func (c *GRPCClient) Create(ctx context.Context, clientRef string, e models.Entity) (models.Canonical, error) {
	fields, err := models.Marshal(e)
	if err != nil {
		return models.Canonical{}, err
	}
	req := rpc.CreateRequest{Entity: e.Type(), ClientRef: clientRef, Fields: fields}
	return c.record(ctx, rpc.MethodCreate, req)
}

func (c *GRPCClient) Update(ctx context.Context, id int64, base time.Time, e models.Entity) (models.Canonical, error) {
	fields, err := models.Marshal(e)
	if err != nil {
		return models.Canonical{}, err
	}
	req := rpc.UpdateRequest{Entity: e.Type(), ID: id, BaseVersion: base, Fields: fields}
	return c.record(ctx, rpc.MethodUpdate, req)
}

func (c *GRPCClient) record(ctx context.Context, method string, req any) (models.Canonical, error) {
	var resp rpc.RecordResponse
	if err := c.call(ctx, method, req, &resp); err != nil {
		return models.Canonical{}, err
	}
	return resp.Record.Canonical()
}

func (c *GRPCClient) Delete(ctx context.Context, t models.EntityType, id int64) error {
	return c.call(ctx, rpc.MethodDelete, rpc.DeleteRequest{Entity: t, ID: id}, nil)
}

func (c *GRPCClient) BulkDelete(ctx context.Context, t models.EntityType, ids []int64) (int64, error) {
	var resp rpc.BulkDeleteResponse
	if err := c.call(ctx, rpc.MethodBulkDelete, rpc.BulkDeleteRequest{Entity: t, IDs: ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (c *GRPCClient) PresignImageUpload(ctx context.Context, orderID int64, contentType string) (ImageUpload, error) {
	var resp rpc.PresignResponse
	req := rpc.PresignRequest{OrderID: orderID, ContentType: contentType}
	if err := c.call(ctx, rpc.MethodPresignImageUpload, req, &resp); err != nil {
		return ImageUpload{}, err
	}
	return ImageUpload{UploadURL: resp.UploadURL, ObjectURL: resp.ObjectURL, ExpiresAt: resp.ExpiresAt}, nil
}

var _ Remote = (*GRPCClient)(nil)
