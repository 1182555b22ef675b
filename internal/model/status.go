package model

// UnavailableCount is rendered in place of the visit count when the counter
// store could not be reached.
const UnavailableCount = "Error"

// TimestampLayout is the wall-clock format shown on the status page.
const TimestampLayout = "2006-01-02 15:04:05"

// StatusPage holds everything rendered by the status page for one request.
// It lives only for the duration of that request.
type StatusPage struct {
	Title       string
	Environment string
	Hostname    string
	Timestamp   string
	Visits      string
	Network     string
	StoreStatus string
	Status      string
	// Healthy is false when the counter store failed for this request.
	Healthy bool
}
