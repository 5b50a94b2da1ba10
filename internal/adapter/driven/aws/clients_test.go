package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	apiErr := func(code string) error {
		return &smithy.GenericAPIError{Code: code, Message: "nope"}
	}

	require.True(t, isAccessDenied(apiErr("AccessDenied")))
	require.True(t, isAccessDenied(apiErr("AccessDeniedException")))
	require.True(t, isAccessDenied(fmt.Errorf("wrapped: %w", apiErr("UnauthorizedOperation"))))
	require.False(t, isAccessDenied(apiErr("ThrottlingException")))
	require.False(t, isAccessDenied(errors.New("plain failure")))

	require.True(t, isThrottled(apiErr("ThrottlingException")))
	require.True(t, isThrottled(apiErr("TooManyRequestsException")))
	require.False(t, isThrottled(apiErr("AccessDenied")))
	require.False(t, isThrottled(errors.New("plain failure")))
}
