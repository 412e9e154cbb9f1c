package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
)

func TestFetchUserPaymentDetails(t *testing.T) {
	lookup := NewLookup(zap.NewNop())

	user, err := lookup.FetchUserPaymentDetails(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "123Card", user.PaymentDetails.CardNumber)
	assert.Equal(t, "JOHN DOE", user.PaymentDetails.Name)
}

func TestFetchUserPaymentDetailsMissingID(t *testing.T) {
	lookup := NewLookup(zap.NewNop())

	_, err := lookup.FetchUserPaymentDetails(context.Background(), "")

	var uerr *core.UpstreamUnavailableError
	require.ErrorAs(t, err, &uerr)
}
