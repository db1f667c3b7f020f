// internal/jobs/expiration-scan/config.go
package expirationscan

// Config holds the scan job settings.
type Config struct {
	// AppURL is the product base URL embedded in notification bodies.
	AppURL string
}
