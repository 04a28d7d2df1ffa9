package siteqa

import (
	"net"
	"net/url"
	"path"
	"strings"
	"time"
)

// URLStatus is the crawl state of a URL in the link graph.
type URLStatus string

// URL statuses. Only pending URLs are eligible for fetching on resume.
const (
	StatusPending URLStatus = "pending"
	StatusFetched URLStatus = "fetched"
	StatusFailed  URLStatus = "failed"
	StatusSkipped URLStatus = "skipped"
)

// Terminal reports whether the status means the URL was already dealt with.
func (s URLStatus) Terminal() bool {
	return s == StatusFetched || s == StatusFailed || s == StatusSkipped
}

// ResourceKind says whether a URL is an HTML page or a downloadable document.
type ResourceKind string

// Resource kinds.
const (
	KindPage     ResourceKind = "page"
	KindDocument ResourceKind = "document"
	KindUnknown  ResourceKind = "unknown"
)

// Format identifies how a fetched body must be parsed.
type Format string

// Supported body formats.
const (
	FormatHTML    Format = "html"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatDOC     Format = "doc"
	FormatUnknown Format = "unknown"
)

// URLRecord is everything the link graph knows about one normalized URL.
type URLRecord struct {
	URL         string       `json:"url"`
	Status      URLStatus    `json:"status"`
	Kind        ResourceKind `json:"kind"`
	Depth       int          `json:"depth"`
	FetchedAt   time.Time    `json:"fetchedAt"`
	Size        int64        `json:"size"`
	ContentHash string       `json:"contentHash"`
	Method      FetchMethod  `json:"method,omitempty"`
	ErrorCode   string       `json:"errorCode,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Validate returns an error if the record contains invalid fields.
func (r *URLRecord) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "url record URL required")
	}
	switch r.Status {
	case StatusPending, StatusFetched, StatusFailed, StatusSkipped:
	default:
		return Errorf(EINVALID, "invalid url status %q", r.Status)
	}
	if r.Depth < 0 {
		return Errorf(EINVALID, "url depth must not be negative")
	}
	return nil
}

// DocumentExtensions are the file extensions fetched by direct download.
var DocumentExtensions = []string{".pdf", ".docx", ".doc"}

// SkipExtensions are never fetched: archives, binaries and images.
var SkipExtensions = []string{
	".zip", ".rar", ".tar", ".tar.gz", ".7z", ".gz", ".xz", ".bz2",
	".iso", ".exe", ".bin", ".msi",
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".svg", ".webp",
}

// NormalizeURL returns the canonical identity of an absolute http(s) URL.
// The scheme and host are lowercased, default ports are dropped, the
// fragment is removed and an empty path becomes "/".
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", raw)
	}

	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	u.Scheme = scheme
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// ResolveURL resolves href against base and normalizes the result.
// Non-navigational links (javascript:, mailto:, tel:, data:) are rejected.
func ResolveURL(base *url.URL, href string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", Errorf(EINVALID, "non-navigational link %q", href)
		}
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", Errorf(EINVALID, "invalid link %q: %v", href, err)
	}
	return NormalizeURL(base.ResolveReference(ref).String())
}

// Extension returns the lowercased file extension of the URL path.
// Compound archive suffixes such as ".tar.gz" are returned whole.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.ToLower(u.Path)
	if strings.HasSuffix(p, ".tar.gz") {
		return ".tar.gz"
	}
	return path.Ext(p)
}

// HasExtension reports whether the URL path ends in one of exts.
func HasExtension(rawURL string, exts []string) bool {
	ext := Extension(rawURL)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// KindHint guesses the resource kind from the URL alone, before fetching.
func KindHint(rawURL string, documentExts []string) ResourceKind {
	if HasExtension(rawURL, documentExts) {
		return KindDocument
	}
	switch Extension(rawURL) {
	case "", ".html", ".htm", ".xhtml", ".php", ".asp", ".aspx", ".jsp":
		return KindPage
	}
	return KindUnknown
}

// DetectFormat decides how a fetched body is parsed. The Content-Type
// header wins when it is specific; otherwise the URL extension decides.
func DetectFormat(rawURL, contentType string) Format {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	switch ct {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "application/msword":
		return FormatDOC
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	}

	switch Extension(rawURL) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".doc":
		return FormatDOC
	}
	if ct == "" || strings.HasPrefix(ct, "text/") {
		return FormatHTML
	}
	return FormatUnknown
}

// KindOf maps a body format to its resource kind.
func KindOf(f Format) ResourceKind {
	switch f {
	case FormatHTML:
		return KindPage
	case FormatPDF, FormatDOCX, FormatDOC:
		return KindDocument
	}
	return KindUnknown
}

// Domain returns the directory-safe host of a URL, used to partition
// persisted crawl state per site.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", rawURL)
	}
	return strings.NewReplacer(":", "_", "[", "", "]", "").Replace(host), nil
}

// TitleFromURL derives a readable title from the last path segment, for
// documents that carry no title of their own.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return u.Hostname()
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}
