package nbi

import (
	"errors"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/nbi/types"
	"github.com/sky-map-team/skyorient/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidArgument is a package-level sentinel for request validation failures.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeTravelUnavailable is returned by the time travel calls when the
	// service was not given a transitioning clock.
	ErrTimeTravelUnavailable = errors.New("time travel is not available")
)

// ToStatusError maps orientation errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, types.ErrInvalidMessage),
		errors.Is(err, model.ErrInvalidSample),
		errors.Is(err, core.ErrZeroLength):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrTimeTravelUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
