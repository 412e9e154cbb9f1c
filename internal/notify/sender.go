package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// Sender delivers the customer-facing outcome notification. The log sender
// stands in until a real channel (email, push) is plugged in.
type Sender interface {
	SendOrderApproved(ctx context.Context, orderID string) error
	SendOrderRejected(ctx context.Context, orderID string, reason string) error
}

type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOrderApproved(ctx context.Context, orderID string) error {
	mylogger.Info(
		ctx,
		s.logger,
		"Order approved notification",
		zap.String("order_id", orderID),
	)

	return nil
}

func (s *LogSender) SendOrderRejected(ctx context.Context, orderID string, reason string) error {
	mylogger.Info(
		ctx,
		s.logger,
		"Order rejected notification",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
	)

	return nil
}
