package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound integrations (Telegram API calls)
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
