package remote

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/rpc"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrRejected    = errors.New("rejected by server")
)

// ErrUnauthorized is common.ErrUnauthorized, re-exported for callers of this
// package.
var ErrUnauthorized = common.ErrUnauthorized

// IsTransient reports whether err is worth retrying on a later pass without
// changing the record.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.Aborted:
		if ce, ok := rpc.ConflictFromStatus(st); ok {
			return ce
		}
		return fmt.Errorf("%w: %s", common.ErrVersionConflict, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
