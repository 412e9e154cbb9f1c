// Package users fronts the upstream users service. Only the payment-details
// query is needed here; the upstream is mocked and always answers with the
// same record for a known user id.
package users

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
	"github.com/Athul-Krishna/ProjectTransac/pkg/utils"
)

// Fetcher answers the saga's payment-details query.
type Fetcher interface {
	FetchUserPaymentDetails(ctx context.Context, userID string) (*core.User, error)
}

type Lookup struct {
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewLookup(logger *zap.Logger) *Lookup {
	return &Lookup{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "user-payment-details",
		}),
		logger: logger,
	}
}

func (l *Lookup) FetchUserPaymentDetails(ctx context.Context, userID string) (*core.User, error) {
	user, err := utils.ExecuteWithBreaker(l.breaker, func() (*core.User, error) {
		if userID == "" {
			return nil, errors.New("missing user id")
		}

		return &core.User{
			UserID:    userID,
			FirstName: "John",
			LastName:  "Doe",
			PaymentDetails: core.PaymentDetails{
				CardNumber:      "123Card",
				CVV:             "123",
				Name:            "JOHN DOE",
				ValidUntilMonth: 12,
				ValidUntilYear:  2030,
			},
		}, nil
	})
	if err != nil {
		mylogger.Warn(
			ctx,
			l.logger,
			"User payment details lookup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)

		return nil, &core.UpstreamUnavailableError{Operation: "user payment details lookup", Err: err}
	}

	return user, nil
}
