package common

import (
	"net/http"
	"net/url"
	"strings"
)

var reservedSubdomains = map[string]bool{
	"www":  true,
	"api":  true,
	"mail": true,
	"ftp":  true,
	"smtp": true,
}

// SubdomainRewrite serves name.<domain>/ as /blog/name. It wraps the whole
// router because gin picks the route before any middleware runs. Only the
// bare root of a subdomain is rewritten.
func SubdomainRewrite(domain string, next http.Handler) http.Handler {
	base := hostOf(domain)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name := blogSubdomain(r.Host, base); name != "" && (r.URL.Path == "/" || r.URL.Path == "") {
			r.URL.Path = "/blog/" + name
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

func blogSubdomain(host, base string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	name, ok := strings.CutSuffix(host, "."+base)
	if !ok || name == "" || strings.Contains(name, ".") || reservedSubdomains[name] {
		return ""
	}
	return name
}

func hostOf(domain string) string {
	if u, err := url.Parse(domain); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return domain
}
