package services

// Notifier is the outbound message fan-out (Telegram in production).
// Implementations must be fire-and-forget: never block the caller, never
// surface a delivery failure into the business transaction.
type Notifier interface {
	NotifyUser(userID, message string)
	Broadcast(message string)
}
