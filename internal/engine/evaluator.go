package engine

import (
	"context"
	"time"

	"pricealert/internal/metrics"
	"pricealert/internal/models"
	"pricealert/internal/notify"

	"go.uber.org/zap"
)

// Evaluator decides which of a user's alerts fire against a cycle's prices.
type Evaluator struct {
	dispatcher      notify.Dispatcher
	dispatchTimeout time.Duration
	log             *zap.Logger
}

func NewEvaluator(dispatcher notify.Dispatcher, dispatchTimeout time.Duration, log *zap.Logger) *Evaluator {
	return &Evaluator{dispatcher: dispatcher, dispatchTimeout: dispatchTimeout, log: log}
}

// Evaluate returns the ids of the user's alerts whose band was breached. Alerts without a
// price this cycle are left alone. A triggered alert is returned whether or not its
// notification could be delivered.
func (e *Evaluator) Evaluate(ctx context.Context, user models.User, alerts []*models.Alert, priceMap map[string]float64) []string {
	var triggered []string
	for _, alert := range alerts {
		price, ok := priceMap[alert.Symbol]
		if !ok {
			continue
		}
		dir := alert.Breach(price)
		if dir == models.DirectionNone {
			continue
		}

		metrics.AlertsTriggeredTotal.WithLabelValues(string(dir)).Inc()
		e.log.Info("Alert triggered",
			zap.String("alert_id", alert.ID),
			zap.String("user_id", user.ID),
			zap.String("symbol", alert.Symbol),
			zap.String("direction", string(dir)),
			zap.Float64("price", price),
		)
		e.notify(ctx, user, alert, price, dir)
		triggered = append(triggered, alert.ID)
	}
	return triggered
}

func (e *Evaluator) notify(ctx context.Context, user models.User, alert *models.Alert, price float64, dir models.Direction) {
	if !user.CanNotify() {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return
	}
	if e.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.dispatchTimeout)
		defer cancel()
	}

	msg := notify.AlertMessage(*user.DeviceToken, user.Language, alert, price, dir)
	if err := e.dispatcher.Dispatch(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		e.log.Error("Failed to dispatch push notification",
			zap.String("alert_id", alert.ID),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}
