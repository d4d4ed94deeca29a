package delivery

import "time"

// maxBackoffShift caps the exponent so the doubling never overflows a
// time.Duration even with absurd attempt numbers.
const maxBackoffShift = 32

// Backoff returns interval * 2^(attempt-1): the delay scheduled after
// the given attempt number fails.
func Backoff(interval time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return interval * time.Duration(int64(1)<<shift)
}

// ShouldRetry reports whether another attempt is allowed after attempt
// number n fails. An endpoint gets up to maxRetries additional attempts
// beyond the first, so attempt numbers run 1..maxRetries+1.
func ShouldRetry(attempt, maxRetries int) bool {
	return attempt <= maxRetries
}

// NextRetryAt computes when the attempt following attempt n may run.
func NextRetryAt(now time.Time, interval time.Duration, attempt int) time.Time {
	return now.Add(Backoff(interval, attempt))
}
