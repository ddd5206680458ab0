// Package utils holds bespoke one off helpers that don't warrant a package of
// their own.
package utils

var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
