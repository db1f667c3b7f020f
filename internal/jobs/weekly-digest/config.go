// internal/jobs/weekly-digest/config.go
package weeklydigest

// Config holds the digest job settings.
type Config struct {
	// AppURL is the product base URL embedded in digest bodies.
	AppURL string
	// TopExpiring caps the ranked list of soonest-expiring items.
	TopExpiring int
	// IncludeContracts adds support contracts to the ranked list. The
	// historical digest only ranked licenses and hardware, so this
	// defaults to off.
	IncludeContracts bool
}
