package proxy

// ValidationStatus records how a proxy fared during the startup probe.
type ValidationStatus string

const (
	ValidationUnknown ValidationStatus = "unknown"
	ValidationSuccess ValidationStatus = "success"
	ValidationFailed  ValidationStatus = "failed"
)

// FailedURL pairs a request URL with the reason it failed.
type FailedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Stats accumulates the request history of a single proxy. A Stats record is
// created when the proxy passes validation and survives eviction: it moves
// from the live pool into the archive but is never destroyed.
type Stats struct {
	ValidationStatus   ValidationStatus `json:"validation_status"`
	TotalRequests      int              `json:"total_requests"`
	SuccessfulRequests int              `json:"successful_requests"`
	FailedRequests     int              `json:"failed_requests"`
	StatusCodes        map[int]int      `json:"status_codes"`
	SuccessfulURLs     []string         `json:"successful_urls"`
	FailedURLs         []FailedURL      `json:"failed_urls"`
}

func newStats(status ValidationStatus) *Stats {
	return &Stats{
		ValidationStatus: status,
		StatusCodes:      make(map[int]int),
	}
}

// clone copies the stats deeply enough to be read without the pool lock.
func (s *Stats) clone() *Stats {
	c := *s
	c.StatusCodes = make(map[int]int, len(s.StatusCodes))
	for code, n := range s.StatusCodes {
		c.StatusCodes[code] = n
	}
	c.SuccessfulURLs = append([]string(nil), s.SuccessfulURLs...)
	c.FailedURLs = append([]FailedURL(nil), s.FailedURLs...)
	return &c
}

func (s *Stats) recordSuccess(requestURL string, statusCode int) {
	s.TotalRequests++
	s.SuccessfulRequests++
	s.StatusCodes[statusCode]++
	s.SuccessfulURLs = append(s.SuccessfulURLs, requestURL)
}

// recordFailure notes a failed request. A statusCode of 0 means no response
// was received, so the histogram is left untouched.
func (s *Stats) recordFailure(requestURL, reason string, statusCode int) {
	s.TotalRequests++
	s.FailedRequests++
	if statusCode > 0 {
		s.StatusCodes[statusCode]++
	}
	s.FailedURLs = append(s.FailedURLs, FailedURL{URL: requestURL, Reason: reason})
}
