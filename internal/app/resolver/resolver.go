// Package resolver turns references found in a page into canonical absolute
// URLs. Resolution is total: any string resolves to some URL, never an error.
package resolver

import (
	"path"
	"strings"
)

// usesParams lists the schemes whose last path segment may carry ;params.
var usesParams = map[string]bool{
	"": true, "ftp": true, "hdl": true, "prospero": true, "http": true,
	"imap": true, "https": true, "shttp": true, "rtsp": true, "rtspu": true,
	"sip": true, "sips": true, "mms": true, "sftp": true, "tel": true,
}

// Parts is a URL split into its six components, delimiters removed.
type Parts struct {
	Scheme   string
	Netloc   string
	Path     string
	Params   string
	Query    string
	Fragment string
}

// Split breaks raw into Parts. Empty components are valid, nothing is
// rejected.
func Split(raw string) Parts {
	var p Parts
	rest := raw

	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		after := rest[i+1:]
		// "host:8080" is a path with a port, not a scheme.
		if rest[:i] == "http" || after == "" || !isDigits(after) {
			p.Scheme = strings.ToLower(rest[:i])
			rest = after
		}
	}

	if strings.HasPrefix(rest, "//") {
		end := len(rest)
		if i := strings.IndexAny(rest[2:], "/?#"); i >= 0 {
			end = i + 2
		}
		p.Netloc, rest = rest[2:end], rest[end:]
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest, p.Fragment = rest[:i], rest[i+1:]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, p.Query = rest[:i], rest[i+1:]
	}

	if usesParams[p.Scheme] && strings.Contains(rest, ";") {
		i := strings.IndexByte(rest, ';')
		if slash := strings.LastIndexByte(rest, '/'); slash >= 0 {
			i = strings.IndexByte(rest[slash:], ';')
			if i >= 0 {
				i += slash
			}
		}
		if i >= 0 {
			rest, p.Params = rest[:i], rest[i+1:]
		}
	}

	p.Path = rest
	return p
}

// Resolve resolves ref against base and returns the canonical absolute form
// scheme://netloc/path[;params][?query][#fragment].
//
// The scheme separator is always "://", whatever the reference used. A
// relative path is joined to the directory of the base path and cleaned; an
// absolute path is kept as is. A reference with no scheme, netloc or path
// (e.g. "#top" or "?page=2") points into the base document and keeps its path.
func Resolve(base, ref string) string {
	b := Split(base)
	r := Split(ref)

	scheme := r.Scheme
	if scheme == "" {
		scheme = b.Scheme
	}
	netloc := r.Netloc
	if netloc == "" {
		netloc = b.Netloc
	}

	p := r.Path
	switch {
	case p != "" && p[0] != '/':
		p = path.Clean(dirname(b.Path) + "/" + p)
	case p == "" && r.Scheme == "" && r.Netloc == "":
		p = b.Path
	}

	var sb strings.Builder
	sb.Grow(len(scheme) + len(netloc) + len(p) + len(r.Params) + len(r.Query) + len(r.Fragment) + 6)
	sb.WriteString(scheme)
	sb.WriteString("://")
	sb.WriteString(netloc)
	sb.WriteString(p)
	if r.Params != "" {
		sb.WriteByte(';')
		sb.WriteString(r.Params)
	}
	if r.Query != "" {
		sb.WriteByte('?')
		sb.WriteString(r.Query)
	}
	if r.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(r.Fragment)
	}
	return sb.String()
}

// Defrag strips the fragment from u.
func Defrag(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// dirname returns everything before the last slash of p, trailing slashes
// trimmed unless the head is only slashes.
func dirname(p string) string {
	head := p[:strings.LastIndexByte(p, '/')+1]
	if strings.Trim(head, "/") != "" {
		head = strings.TrimRight(head, "/")
	}
	return head
}

func isScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '+', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
