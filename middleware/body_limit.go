package middleware

import "net/http"

// BodyLimit caps the request body at MaxBytes. Reads beyond the cap fail
// with *http.MaxBytesError, which endpoint.Unmarshal reports as 413.
type BodyLimit struct {
	MaxBytes int64
}

// Process implements endpoint.Processor.
func (p *BodyLimit) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.MaxBytes > 0 && r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(w, r.Body, p.MaxBytes)
	}
	return next(w, r)
}
