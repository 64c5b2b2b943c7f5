package nbi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/nbi/types"
	"github.com/sky-map-team/skyorient/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatusErrorCodes(t *testing.T) {
	t.Parallel()

	want := map[error]codes.Code{
		status.Error(codes.PermissionDenied, "denied"):          codes.PermissionDenied,
		fmt.Errorf("%w: latitude 91", ErrInvalidArgument):       codes.InvalidArgument,
		fmt.Errorf("decode: %w", types.ErrInvalidMessage):       codes.InvalidArgument,
		fmt.Errorf("push: %w", model.ErrInvalidSample):          codes.InvalidArgument,
		core.ErrZeroLength:                                      codes.InvalidArgument,
		fmt.Errorf("time travel: %w", ErrTimeTravelUnavailable): codes.FailedPrecondition,
		errors.New("declination table exploded"):                codes.Internal,
	}
	for in, code := range want {
		got := ToStatusError(in)
		if status.Code(got) != code {
			t.Errorf("ToStatusError(%v) code = %v, want %v", in, status.Code(got), code)
		}
	}
}

func TestToStatusErrorKeepsMessage(t *testing.T) {
	t.Parallel()

	if ToStatusError(nil) != nil {
		t.Fatalf("ToStatusError(nil) should be nil")
	}
	err := fmt.Errorf("%w: field of view 200 outside [1, 179]", ErrInvalidArgument)
	st, _ := status.FromError(ToStatusError(err))
	if st.Message() != err.Error() {
		t.Fatalf("message = %q, want %q", st.Message(), err.Error())
	}
}
