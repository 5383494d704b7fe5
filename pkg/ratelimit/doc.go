// Package ratelimit paces CDN asset downloads.
//
// A TokenBucket holds a burst of tokens and refills continuously:
//
//	limiter := ratelimit.PerMinute(60, 10)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
