// Package buildinfo carries release metadata stamped in with
// -ldflags "-X github.com/ekmungai/eloquent-ifrs-sub000/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
