package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/postarhq/postar/errs"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want errs.Kind
	}{
		{errs.NotFound("project not found"), errs.KindNotFound},
		{errs.Precondition("add a poster first"), errs.KindPrecondition},
		{errs.Conflict("compile in progress"), errs.KindConflict},
		{errs.Connectivity("storage unreachable", nil), errs.KindConnectivity},
		{errs.Compilation("no features", nil), errs.KindCompilation},
		{errors.New("plain"), errs.KindUnknown},
		{nil, errs.KindUnknown},
	}
	for _, tc := range cases {
		if got := errs.KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading project: %w", errs.NotFound("project not found"))
	if !errs.IsNotFound(err) {
		t.Fatalf("wrapped not-found lost its kind: %v", err)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := errs.Connectivity("storage unreachable", cause)

	if err.Error() != "storage unreachable: connection refused" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause is not reachable through Unwrap")
	}
}
