package types_test

import (
	"errors"
	"testing"

	"github.com/engramai/engramlite/pkg/types"
)

func TestEngramError_IsMatchesKind(t *testing.T) {
	err := types.NotFound("engram", "abc")
	if !errors.Is(err, &types.EngramError{Kind: types.KindNotFound}) {
		t.Error("expected errors.Is to match on Kind")
	}
	if errors.Is(err, &types.EngramError{Kind: types.KindInvalidInput}) {
		t.Error("expected errors.Is to not match a different Kind")
	}
}

func TestEngramError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := types.StorageBackend("write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the wrapped cause")
	}
}
