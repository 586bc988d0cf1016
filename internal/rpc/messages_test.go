package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

func TestEncodeDecode_Record(t *testing.T) {
	price := int64(25000)
	in := models.Canonical{
		ID:        101,
		ClientRef: "2f1c6a8e-7c1e-4c55-a3f4-2f0d0f8a1c11",
		UpdatedAt: time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC),
		Entity:    models.Order{ClientID: 7, Status: "pending", TotalPrice: &price},
	}

	rec, err := FromCanonical(in)
	require.NoError(t, err)

	s, err := Encode(RecordResponse{Record: rec})
	require.NoError(t, err)

	var out RecordResponse
	require.NoError(t, Decode(s, &out))

	got, err := out.Record.Canonical()
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.ClientRef, got.ClientRef)
	assert.True(t, in.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, in.Entity, got.Entity)
}

func TestDecode_NilStruct(t *testing.T) {
	var req ListRequest
	require.NoError(t, Decode(nil, &req))
	assert.Empty(t, req.Entity)
}

func TestEncode_BulkDeleteIDs(t *testing.T) {
	s, err := Encode(BulkDeleteRequest{Entity: models.Payments, IDs: []int64{3, 9, 12}})
	require.NoError(t, err)

	var got BulkDeleteRequest
	require.NoError(t, Decode(s, &got))
	assert.Equal(t, []int64{3, 9, 12}, got.IDs)
	assert.Equal(t, models.Payments, got.Entity)
}

func TestRecord_UnknownEntity(t *testing.T) {
	_, err := Record{Entity: "users", Fields: []byte(`{}`)}.Canonical()
	require.Error(t, err)
}

func TestConflictStatusRoundTrip(t *testing.T) {
	cur := models.Canonical{
		ID:        101,
		UpdatedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
		Entity:    models.Client{Name: "Ama", Phone: "0209999999"},
	}

	err := ConflictStatus(&models.ConflictError{Current: cur})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Aborted, st.Code())

	ce, ok := ConflictFromStatus(st)
	require.True(t, ok)
	assert.Equal(t, cur.Entity, ce.Current.Entity)
	assert.Equal(t, int64(101), ce.Current.ID)
	assert.True(t, cur.UpdatedAt.Equal(ce.Current.UpdatedAt))
}

func TestConflictFromStatus_OtherCodes(t *testing.T) {
	_, ok := ConflictFromStatus(status.New(codes.Unavailable, "down"))
	assert.False(t, ok)

	_, ok = ConflictFromStatus(status.New(codes.Aborted, "no detail"))
	assert.False(t, ok)

	_, ok = ConflictFromStatus(nil)
	assert.False(t, ok)
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/tailorkeeper.v1.Records/BulkDelete", FullMethod(MethodBulkDelete))
}
