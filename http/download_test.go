package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/siteqa"
	siteqahttp "github.com/fwojciec/siteqa/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download(t *testing.T) {
	t.Parallel()

	t.Run("downloads document under the limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 body"))
		}))
		defer server.Close()

		d := siteqahttp.NewDownloader()
		body, contentType, err := d.Download(context.Background(), server.URL+"/report.pdf", 1<<20)

		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 body", string(body))
		assert.Equal(t, "application/pdf", contentType)
	})

	t.Run("rejects oversized document from head probe without get", func(t *testing.T) {
		t.Parallel()

		var gets atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				gets.Add(1)
			}
			w.Header().Set("Content-Length", strconv.Itoa(4096))
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
			}
		}))
		defer server.Close()

		d := siteqahttp.NewDownloader()
		_, _, err := d.Download(context.Background(), server.URL+"/big.pdf", 1024)

		require.Error(t, err)
		assert.Equal(t, siteqa.ETOOLARGE, siteqa.ErrorCode(err))
		assert.Equal(t, int32(0), gets.Load())
	})

	t.Run("enforces the limit when head is not supported", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
		}))
		defer server.Close()

		d := siteqahttp.NewDownloader()
		body, _, err := d.Download(context.Background(), server.URL+"/big.docx", 1024)

		require.Error(t, err)
		assert.Nil(t, body)
		assert.Equal(t, siteqa.ETOOLARGE, siteqa.ErrorCode(err))
	})

	t.Run("returns fetch error for missing document", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		d := siteqahttp.NewDownloader()
		_, _, err := d.Download(context.Background(), server.URL+"/missing.pdf", 1024)

		require.Error(t, err)
		assert.Equal(t, siteqa.EFETCH, siteqa.ErrorCode(err))
	})
}
