// Package clock indirects time.Now so that scheduling code can be driven
// deterministically in tests without a real wall-clock dependency.
package clock

import "time"

// Source returns the current time. Tests may swap it for a fixed function.
var Source = time.Now

// Now returns the current time as reported by Source.
func Now() time.Time {
	return Source()
}
