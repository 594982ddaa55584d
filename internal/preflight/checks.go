package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelmatch/internal/catalog"
	"reelmatch/internal/postercache"
	"reelmatch/internal/similarity"
)

const tmdbProbeTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCatalog parses the catalog file and reports its size.
func CheckCatalog(path string) Result {
	const name = "Catalog"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "no catalog path configured"}
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d movies)", path, cat.Len())}
}

// CheckSimilarity inspects the cached matrix header and file length. A missing
// file passes when a download URL is configured.
func CheckSimilarity(path, downloadURL string) Result {
	const name = "Similarity matrix"
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if strings.TrimSpace(downloadURL) == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s missing and similarity.download_url not set", path)}
		}
		return Result{Name: name, Passed: true, Detail: "not cached yet; downloads on first use"}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer file.Close()

	n, err := similarity.ReadHeader(file)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	info, err := file.Stat()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if want := similarity.FileSize(n); info.Size() != want {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %d bytes, expected %d for %dx%d)", path, info.Size(), want, n, n)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%dx%d)", path, n, n)}
}

// CheckTMDB verifies that the TMDB API is reachable and the key is accepted.
// A missing key fails the check; recommendations still work with placeholder posters.
func CheckTMDB(ctx context.Context, baseURL, apiKey string) Result {
	const name = "TMDB"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing (posters use the placeholder)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, tmdbProbeTimeout)
	defer cancel()

	endpoint := base + "/configuration?" + url.Values{"api_key": {strings.TrimSpace(apiKey)}}.Encode()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: tmdbProbeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckPosterCache opens the poster URL cache and reports its entry count.
func CheckPosterCache(ctx context.Context, path string) Result {
	const name = "Poster cache"
	cache, err := postercache.Open(ctx, path, postercache.Options{})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer cache.Close()
	if !cache.Enabled() {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	count, err := cache.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, count)}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (TMDB unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (TMDB unreachable)"
	}
	return err.Error()
}
