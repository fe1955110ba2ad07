package bootconfig

// envAllowlist maps exactly the environment variables consumed by core
// (§6) to the koanf path their Settings field loads from. Any other
// environment variable is ignored by Load's env layer — component-level
// settings belong in the ConfigTree, not here.
var envAllowlist = map[string]string{
	"ROOT":        "root",
	"LOG_STORE":   "log_store",
	"HTTP_PROXY":  "http_proxy",
	"http_proxy":  "http_proxy",
	"HTTPS_PROXY": "https_proxy",
	"https_proxy": "https_proxy",
	"NO_PROXY":    "no_proxy",
	"no_proxy":    "no_proxy",
	"SVCUID":      "svcuid",
}

// envTransform maps an environment variable name to its koanf path, or ""
// to skip it.
func envTransform(key string) string {
	return envAllowlist[key]
}
