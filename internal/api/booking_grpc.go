package api

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"shareit/internal/models"
	"shareit/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bookingServiceName = "shareit.booking.v1.BookingService"
	userIDMetadataKey  = "x-sharer-user-id"

	methodCreateBooking = "/" + bookingServiceName + "/CreateBooking"
	methodGetBooking    = "/" + bookingServiceName + "/GetBooking"
	methodDecideBooking = "/" + bookingServiceName + "/DecideBooking"
	methodListBookings  = "/" + bookingServiceName + "/ListBookings"
)

// BookingServer is the gRPC face of the booking engine. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type BookingServer interface {
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DecideBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterBookingServer(s grpc.ServiceRegistrar, srv BookingServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler(methodCreateBooking, BookingServer.CreateBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler(methodGetBooking, BookingServer.GetBooking)},
		{MethodName: "DecideBooking", Handler: unaryHandler(methodDecideBooking, BookingServer.DecideBooking)},
		{MethodName: "ListBookings", Handler: unaryHandler(methodListBookings, BookingServer.ListBookings)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shareit/booking/v1/booking.proto",
}

type structCall func(BookingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type BookingGRPC struct {
	bookings *service.BookingService
}

func NewBookingGRPC(bookings *service.BookingService) *BookingGRPC {
	return &BookingGRPC{bookings: bookings}
}

func (g *BookingGRPC) CreateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := metadataUserID(ctx)
	if err != nil {
		return nil, err
	}
	itemID, err := intField(in, "itemId", 0)
	if err != nil {
		return nil, err
	}

	booking, err := g.bookings.CreateBooking(ctx, models.BookingRequest{
		Start:  parseTime(stringField(in, "start")),
		End:    parseTime(stringField(in, "end")),
		ItemID: itemID,
	}, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(booking)
}

func (g *BookingGRPC) GetBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := metadataUserID(ctx)
	if err != nil {
		return nil, err
	}
	bookingID, err := intField(in, "bookingId", 0)
	if err != nil {
		return nil, err
	}
	booking, err := g.bookings.FindByID(ctx, bookingID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(booking)
}

func (g *BookingGRPC) DecideBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := metadataUserID(ctx)
	if err != nil {
		return nil, err
	}
	approved, ok := in.GetFields()["approved"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "approved is required")
	}
	bookingID, err := intField(in, "bookingId", 0)
	if err != nil {
		return nil, err
	}
	booking, err := g.bookings.ApproveOrReject(ctx, userID, bookingID, approved.GetBoolValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(booking)
}

func (g *BookingGRPC) ListBookings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := metadataUserID(ctx)
	if err != nil {
		return nil, err
	}

	view := models.ViewAsBooker
	if in.GetFields()["owner"].GetBoolValue() {
		view = models.ViewAsOwner
	}
	state := stringField(in, "state")
	if state == "" {
		state = defaultState
	}

	from, err := intField(in, "from", 0)
	if err != nil {
		return nil, err
	}
	size, err := intField(in, "size", models.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	bookings, err := g.bookings.ListBookings(ctx, userID, view, state, int(from), int(size))
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]any, 0, len(bookings))
	for _, b := range bookings {
		list = append(list, bookingMap(b))
	}
	out, err := structpb.NewStruct(map[string]any{"bookings": list})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func metadataUserID(ctx context.Context) (int64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	raw := first(md.Get(userIDMetadataKey))
	if raw == "" {
		return 0, status.Error(codes.InvalidArgument, "missing "+userIDMetadataKey+" metadata")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, status.Error(codes.InvalidArgument, "invalid "+userIDMetadataKey+" metadata")
	}
	return id, nil
}

func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(in.GetFields()[name].GetStringValue())
}

// maxExactInt is the largest magnitude a protobuf double holds without rounding.
const maxExactInt = 1 << 53

// intField reads a whole number. Fractions, non-numbers and values beyond
// float64 integer precision are InvalidArgument.
func intField(in *structpb.Struct, name string, def int64) (int64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return def, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int64(f), nil
}

func bookingMap(b *models.Booking) map[string]any {
	return map[string]any{
		"id":        b.ID,
		"itemId":    b.ItemID,
		"itemName":  b.ItemName,
		"ownerId":   b.ItemOwnerID,
		"bookerId":  b.BookerID,
		"status":    string(b.Status),
		"start":     b.Start.Format(time.RFC3339Nano),
		"end":       b.End.Format(time.RFC3339Nano),
		"createdAt": b.CreatedAt.Format(time.RFC3339Nano),
	}
}

func bookingStruct(b *models.Booking) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(bookingMap(b))
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
