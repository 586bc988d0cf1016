package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// ConflictStatus returns an Aborted status carrying the stored record as a
// Struct detail.
func ConflictStatus(ce *models.ConflictError) error {
	st := status.New(codes.Aborted, ce.Error())

	rec, err := FromCanonical(ce.Current)
	if err != nil {
		return st.Err()
	}
	detail, err := Encode(rec)
	if err != nil {
		return st.Err()
	}
	withDetail, err := st.WithDetails(detail)
	if err != nil {
		return st.Err()
	}
	return withDetail.Err()
}

// ConflictFromStatus extracts the stored record from an Aborted status built
// by ConflictStatus. ok is false for any other status.
func ConflictFromStatus(st *status.Status) (*models.ConflictError, bool) {
	if st == nil || st.Code() != codes.Aborted {
		return nil, false
	}
	for _, d := range st.Details() {
		s, isStruct := d.(*structpb.Struct)
		if !isStruct {
			continue
		}
		var rec Record
		if err := Decode(s, &rec); err != nil {
			continue
		}
		c, err := rec.Canonical()
		if err != nil {
			continue
		}
		return &models.ConflictError{Current: c}, true
	}
	return nil, false
}
