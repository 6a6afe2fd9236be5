// Package usage meters API requests per company. Counters accumulate in
// redis as hourly buckets; a cron-scheduled flusher drains closed buckets
// into postgres, which serves the scoped reporting endpoint.
package usage
