package version

import "fmt"

// Name identifies the server to MCP clients and to the Databricks API.
const Name = "databricks-mcp"

// Build-time variables. Override via -ldflags.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildDate = "dev"
)

// Info describes build/version metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Name:      Name,
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
	}
}

// UserAgent is sent on every outbound Databricks request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, defaultOr(Version, "dev"))
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
