package handlers

import (
	"task-payout-system/middleware"
	"task-payout-system/notifier"
	"task-payout-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

// SetupWorkerRoutes wires the public auth surface and the session-guarded
// worker actions.
func SetupWorkerRoutes(
	app *fiber.App,
	store *session.Store,
	auth *services.AuthService,
	tasks *services.TaskService,
	payouts *services.PayoutService,
	engagement *services.EngagementService,
) {
	// Public
	app.Post("/signup", auth.SignUp)
	app.Post("/login", auth.Login)
	app.Get("/login/telegram", auth.TelegramLogin)
	app.Post("/logout", auth.Logout)

	// Session-guarded worker routes
	secured := app.Group("/", middleware.RequireUser(store))
	secured.Get("/dashboard", tasks.Dashboard)
	secured.Post("/tasks/claim", tasks.ClaimTask)
	secured.Post("/tasks/:id/submit", tasks.SubmitTask)
	secured.Post("/payouts", payouts.RequestPayout)
	secured.Get("/payouts", payouts.ListMine)
	secured.Get("/ads", engagement.ListActiveAds)
	secured.Post("/ads/:id/redeem", engagement.RedeemAdHandler)
	secured.Post("/checkin", engagement.CheckInHandler)
}

// SetupAdminRoutes wires the admin console endpoints
func SetupAdminRoutes(
	app *fiber.App,
	store *session.Store,
	db *gorm.DB,
	tasks *services.TaskService,
	payouts *services.PayoutService,
	inventory *services.InventoryService,
	engagement *services.EngagementService,
) {
	admin := app.Group("/admin", middleware.RequireUser(store), middleware.RequireAdmin(db))

	admin.Get("/dashboard", inventory.AdminDashboard)
	admin.Post("/inventory", inventory.AddInventory)

	admin.Get("/tasks/submitted", tasks.ListSubmitted)
	admin.Post("/tasks/:id/verify", tasks.VerifyTask)
	admin.Post("/tasks/:id/reject", tasks.RejectTask)

	admin.Get("/payouts", payouts.ListRequested)
	admin.Post("/payouts/:id/paid", payouts.MarkPaidHandler)
	admin.Post("/payouts/:id/reject", payouts.RejectHandler)

	admin.Get("/ads", engagement.ListAllAds)
	admin.Post("/ads", engagement.CreateAd)
	admin.Put("/ads/:id", engagement.UpdateAd)
	admin.Delete("/ads/:id", engagement.DeleteAd)
}

// SetupBotRoutes wires the Telegram webhook receiver
func SetupBotRoutes(app *fiber.App, bot *notifier.Bot) {
	app.Post("/telegram/webhook", bot.WebhookHandler())
}
