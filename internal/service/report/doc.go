// Package report shapes aggregated click results into renderable report
// rows. It consumes the qualification pipeline's per-identity aggregation
// and produces per-deployment engagement metrics; it never queries the
// store itself.
package report
