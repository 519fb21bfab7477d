package protection

import "strings"

// Signal carries the request attributes the protection layer inspects.
type Signal struct {
	IP             string
	UserAgent      string
	LoadTestHeader string // value of the X-Load-Test header, if any
}

// User-Agent substrings of common load testing tools. Matching any of them
// counts as a load-test signal when the bypass is enabled.
var loadTestAgents = []string{
	"jmeter", "apache-httpclient", "loadrunner", "gatling",
	"artillery", "k6", "wrk", "siege", "ab/", "curl/",
	"python-requests", "go-http-client",
}

// BypassPolicy decides whether a request is a recognized load test and may
// skip rate limiting, attack detection and suspicious-visit flagging.
//
// The client-supplied signal is spoofable, which is why the bypass is off by
// default. With a SharedSecret configured, the header must carry the secret
// instead of "true" and the User-Agent allowlist is ignored.
type BypassPolicy struct {
	Enabled      bool
	SharedSecret string
}

// IsLoadTest reports whether the request carries a recognized load-test signal.
func (p BypassPolicy) IsLoadTest(sig Signal) bool {
	if !p.Enabled {
		return false
	}

	if p.SharedSecret != "" {
		return sig.LoadTestHeader == p.SharedSecret
	}

	if strings.EqualFold(sig.LoadTestHeader, "true") {
		return true
	}

	ua := strings.ToLower(sig.UserAgent)
	for _, agent := range loadTestAgents {
		if strings.Contains(ua, agent) {
			return true
		}
	}

	return false
}
