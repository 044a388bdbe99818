package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quickshop/quickshop-backend/internal/app/service"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

// ReservationScheduler periodically cancels unpaid orders whose stock
// reservation has expired, returning the stock to the catalog
type ReservationScheduler struct {
	cron         *cron.Cron
	orderService service.OrderService
	ttl          time.Duration
}

func NewReservationScheduler(orderService service.OrderService, ttl time.Duration) *ReservationScheduler {
	return &ReservationScheduler{
		cron:         cron.New(),
		orderService: orderService,
		ttl:          ttl,
	}
}

// Start runs the release job every five minutes
func (s *ReservationScheduler) Start() error {
	_, err := s.cron.AddFunc("*/5 * * * *", func() {
		released, err := s.orderService.ReleaseExpiredReservations(s.ttl)
		if err != nil {
			logger.Error("Reservation release job failed", err, nil)
			return
		}
		if released > 0 {
			logger.Info("Reservation release job finished", map[string]interface{}{
				"released": released,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to schedule reservation release job", err, nil)
		return err
	}

	s.cron.Start()
	logger.Info("Reservation scheduler started", map[string]interface{}{
		"ttl": s.ttl.String(),
	})
	return nil
}

func (s *ReservationScheduler) Stop() {
	s.cron.Stop()
	logger.Info("Reservation scheduler stopped", nil)
}
