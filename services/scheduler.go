package services

import (
	"log"
	"time"

	"task-payout-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartTokenSweeper clears expired Telegram login tokens so stale links die
// in the database, not just at validation time.
func (s *AuthService) StartTokenSweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			res := s.DB.Model(&models.User{}).
				Where("login_token IS NOT NULL AND login_token_expires_at < ?", time.Now()).
				Updates(map[string]interface{}{
					"login_token":            nil,
					"login_token_expires_at": nil,
				})
			if res.Error != nil {
				log.Printf("[Sweeper] DB error clearing login tokens: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("[Sweeper] Cleared %d expired login token(s)", res.RowsAffected)
			}
		}),
	)
}
