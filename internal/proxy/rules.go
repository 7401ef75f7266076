// Package proxy forwards requests to upstream services.
//
// Requests are matched against an ordered list of rules, the first rule
// whose prefix matches wins. Rules that require authentication are wrapped
// with a gate before the request reaches the upstream.
package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

type (
	Rule struct {
		Prefix      string
		RequireAuth bool
		Target      *url.URL
	}

	// Router is the handler for the whole rule table
	Router struct {
		routes []route
	}

	route struct {
		Rule
		handler http.Handler
	}

	// Gate wraps handlers that require authentication
	Gate func(http.Handler) http.Handler

	// Builder creates the handler that forwards requests for a rule
	Builder func(Rule) http.Handler
)

// ParseRule validates prefix and target and returns the rule.
func ParseRule(prefix, target string, requireAuth bool) (Rule, error) {
	if !strings.HasPrefix(prefix, "/") {
		return Rule{}, InvalidRule{Prefix: prefix, Reason: "prefix must start with /"}
	}
	u, err := url.Parse(target)
	if err != nil {
		return Rule{}, InvalidRule{Prefix: prefix, Reason: err.Error()}
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return Rule{}, InvalidRule{Prefix: prefix, Reason: "upstream scheme must be one of http, https, ws or wss"}
	}
	if u.Host == "" {
		return Rule{}, InvalidRule{Prefix: prefix, Reason: "upstream without host"}
	}
	return Rule{Prefix: prefix, RequireAuth: requireAuth, Target: u}, nil
}

// Match reports whether path is under the rule prefix. Prefixes match
// whole path segments, /app matches /app and /app/x but not /apple.
func (r Rule) Match(path string) bool {
	p := strings.TrimSuffix(r.Prefix, "/")
	if p == "" {
		return true
	}
	return path == p || strings.HasPrefix(path, p+"/")
}

// strip removes the rule prefix from u, the result always starts with /
func (r Rule) strip(u *url.URL) {
	p := strings.TrimSuffix(r.Prefix, "/")
	if p == "" {
		return
	}
	u.Path = ensureSlash(strings.TrimPrefix(u.Path, p))
	if u.RawPath != "" {
		if strings.HasPrefix(u.RawPath, p) {
			u.RawPath = ensureSlash(strings.TrimPrefix(u.RawPath, p))
		} else {
			u.RawPath = ""
		}
	}
}

func ensureSlash(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// NewRouter creates one handler per rule using build, rules that require
// authentication are wrapped with gate.
func NewRouter(rules []Rule, gate Gate, build Builder) (*Router, error) {
	if len(rules) == 0 {
		return nil, InvalidRule{Reason: "at least one rule is required"}
	}
	rt := &Router{}
	for _, r := range rules {
		if r.Target == nil || r.Target.Host == "" {
			return nil, InvalidRule{Prefix: r.Prefix, Reason: "upstream without host"}
		}
		h := build(r)
		if r.RequireAuth {
			if gate == nil {
				return nil, InvalidRule{Prefix: r.Prefix, Reason: "rule requires authentication but no gate was given"}
			}
			h = gate(h)
		}
		rt.routes = append(rt.routes, route{Rule: r, handler: h})
	}
	return rt, nil
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// a rule is chosen by prefix, dot-segments would let a request match
	// one rule and resolve to a path owned by another one upstream
	if hasDotSegment(r.URL.Path) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	for _, rte := range rt.routes {
		if rte.Match(r.URL.Path) {
			rte.handler.ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

// hasDotSegment reports whether p has a "." or ".." segment
func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}
