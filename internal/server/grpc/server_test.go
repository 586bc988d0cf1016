package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/tailorkeeper/internal/auth"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/services"
)

const testSecret = "secret"

type fakeImages struct {
	userID  string
	orderID int64
	err     error
}

func (f *fakeImages) PresignOrderImage(ctx context.Context, userID string, orderID int64, contentType string) (services.ImageUpload, error) {
	f.userID, f.orderID = userID, orderID
	if f.err != nil {
		return services.ImageUpload{}, f.err
	}
	return services.ImageUpload{
		UploadURL: "http://s3.local/order-images/k?sig=1",
		ObjectURL: "http://s3.local/order-images/k",
		ExpiresAt: time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC),
	}, nil
}

type testEnv struct {
	srv *GRPCServer
	lis *bufconn.Listener
}

// startServer serves a server over in-memory storage on a bufconn listener.
func startServer(t *testing.T, images ImageService) *testEnv {
	t.Helper()
	if images == nil {
		images = &fakeImages{}
	}
	rs := services.NewRecordService(repomanager.NewInMemoryRepositoryManager(nil), logging.Nop())
	env := &testEnv{
		srv: NewGRPCServer("bufnet", logging.Nop(), rs, images, testSecret),
		lis: bufconn.Listen(1 << 20),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx, env.lis) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return env
}

// dialAs connects a records client carrying a token for owner.
func (e *testEnv) dialAs(t *testing.T, owner string) *remote.GRPCClient {
	t.Helper()
	token, err := auth.GenerateToken(owner, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return e.dialToken(t, token)
}

func (e *testEnv) dialToken(t *testing.T, token string) *remote.GRPCClient {
	t.Helper()
	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return e.lis.DialContext(ctx) }
	c, err := remote.Dial("passthrough:///bufnet", token, grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:0", logging.Nop(), nil, nil, testSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), nil, nil, testSecret)

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
