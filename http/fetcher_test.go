package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/siteqa"
	siteqahttp "github.com/fwojciec/siteqa/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// campusServer answers the routes every Get test needs.
func campusServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/tuition", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Seen-UA", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>Tuition: $10,000</body></html>"))
	})
	mux.HandleFunc("/old-tuition", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tuition", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("c", 2048)))
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, _ *http.Request) {
		flusher, _ := w.(http.Flusher)
		for range 8 {
			_, _ = w.Write([]byte(strings.Repeat("s", 256)))
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
	mux.HandleFunc("/exact", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("e", 1024)))
	})
	for _, code := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		mux.HandleFunc("/status/"+strconv.Itoa(code), func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_Get(t *testing.T) {
	t.Parallel()

	srv := campusServer(t)

	t.Run("returns body and content type", func(t *testing.T) {
		t.Parallel()

		body, contentType, err := siteqahttp.NewFetcher().Get(context.Background(), srv.URL+"/tuition", 1<<20)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Tuition: $10,000</body></html>", string(body))
		assert.Equal(t, "text/html; charset=utf-8", contentType)
	})

	t.Run("sends the configured user agent", func(t *testing.T) {
		t.Parallel()

		var seen string
		client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := http.DefaultTransport.RoundTrip(req)
			if err == nil {
				seen = resp.Header.Get("X-Seen-UA")
			}
			return resp, err
		})}
		f := siteqahttp.NewFetcher(siteqahttp.WithClient(client), siteqahttp.WithUserAgent("siteqa-test"))

		_, _, err := f.Get(context.Background(), srv.URL+"/tuition", 1<<20)

		require.NoError(t, err)
		assert.Equal(t, "siteqa-test", seen)
	})

	t.Run("follows redirects", func(t *testing.T) {
		t.Parallel()

		body, _, err := siteqahttp.NewFetcher().Get(context.Background(), srv.URL+"/old-tuition", 1<<20)

		require.NoError(t, err)
		assert.Contains(t, string(body), "$10,000")
	})

	t.Run("client timeout is ETIMEOUT", func(t *testing.T) {
		t.Parallel()

		f := siteqahttp.NewFetcher(siteqahttp.WithTimeout(20 * time.Millisecond))

		_, _, err := f.Get(context.Background(), srv.URL+"/slow", 1<<20)

		require.Error(t, err)
		assert.Equal(t, siteqa.ETIMEOUT, siteqa.ErrorCode(err))
	})

	t.Run("cancellation is returned as is", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := siteqahttp.NewFetcher().Get(ctx, srv.URL+"/tuition", 1<<20)

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unresolvable host fails", func(t *testing.T) {
		t.Parallel()

		f := siteqahttp.NewFetcher(siteqahttp.WithTimeout(100 * time.Millisecond))

		_, _, err := f.Get(context.Background(), "http://admissions.invalid/", 1<<20)

		require.Error(t, err)
	})

	for _, code := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		t.Run("HTTP "+http.StatusText(code)+" is EFETCH", func(t *testing.T) {
			t.Parallel()

			_, _, err := siteqahttp.NewFetcher().Get(context.Background(), srv.URL+"/status/"+strconv.Itoa(code), 1<<20)

			require.Error(t, err)
			assert.Equal(t, siteqa.EFETCH, siteqa.ErrorCode(err))
			assert.Contains(t, siteqa.ErrorMessage(err), "HTTP "+strconv.Itoa(code))
		})
	}

	t.Run("size cap", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			path    string
			wantErr bool
		}{
			{"/catalog", true},
			{"/stream", true},
			{"/exact", false},
		}
		for _, tt := range tests {
			body, _, err := siteqahttp.NewFetcher().Get(context.Background(), srv.URL+tt.path, 1024)
			if tt.wantErr {
				require.Error(t, err, tt.path)
				assert.Nil(t, body, tt.path)
				assert.Equal(t, siteqa.ETOOLARGE, siteqa.ErrorCode(err), tt.path)
				continue
			}
			require.NoError(t, err, tt.path)
			assert.Len(t, body, 1024, tt.path)
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
