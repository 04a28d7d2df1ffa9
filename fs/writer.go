// Package fs provides file-based storage for crawl results: corpus
// records, cleaned units and crawl summaries, partitioned per domain.
package fs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/siteqa"
)

// maxNameLen bounds the readable part of a file name derived from a URL.
const maxNameLen = 100

// URLToName converts a URL to a flat, filesystem-safe file name stem.
// The readable part comes from the path; a hash of the full URL keeps
// names unique across query strings and sanitization collisions.
// Example: https://example.com/docs/api/users → docs_api_users-<hash>
func URLToName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", siteqa.Errorf(siteqa.EINVALID, "invalid URL %q: %v", rawURL, err)
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		p = "index"
	}

	var b strings.Builder
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "index"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return fmt.Sprintf("%s-%016x", name, xxhash.Sum64String(rawURL)), nil
}

// writeFileAtomic writes data to a temporary file next to path and
// renames it into place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
