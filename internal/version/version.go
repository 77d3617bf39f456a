// ABOUTME: Product and version identification
// ABOUTME: Reported in listener device info and the bridge's startup log
package version

// Version is overridden at build time with -ldflags "-X ...version.Version=x.y.z"
var Version = "0.1.0"

const (
	Product      = "Resonate Radio"
	Manufacturer = "Resonate Protocol"
)

// String returns the product and version in one line
func String() string {
	return Product + " " + Version
}
