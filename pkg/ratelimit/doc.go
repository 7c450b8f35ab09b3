// Package ratelimit paces article page loads so a run does not hammer the
// news site. Workers call Wait before each navigation; fetch.rate_per_minute
// sets the budget and 0 disables pacing.
package ratelimit
