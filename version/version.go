package version //nolint:revive // package name intentionally matches build-info convention

import "fmt"

//nolint:gochecknoglobals //version information is set at build time
var (
	Repository string
	Version    string
	Commit     string
	Date       string
)

// String formats the build information, falling back to "dev" for unset fields.
func String() string {
	orDev := func(v string) string {
		if v == "" {
			return "dev"
		}
		return v
	}
	return fmt.Sprintf("%s %s (commit %s, built %s)", orDev(Repository), orDev(Version), orDev(Commit), orDev(Date))
}
