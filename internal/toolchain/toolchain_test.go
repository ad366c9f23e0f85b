package toolchain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGitSubmoduleArgs verifies the submodule sync invocation shape.
func TestGitSubmoduleArgs(t *testing.T) {
	t.Parallel()

	git := NewGitSubmodule("third_party/SGLoader-Rewrite")
	require.Equal(t,
		[]string{"submodule", "update", "--init", "--recursive", "third_party/SGLoader-Rewrite"},
		git.args())
}

// TestCargoBuilderArgs verifies release mode is always requested.
func TestCargoBuilderArgs(t *testing.T) {
	t.Parallel()

	cargo := NewCargoBuilder()
	require.Equal(t, []string{"build", "--release"}, cargo.args())
}

// TestDotnetPublisherArgs verifies the publish invocation: release
// configuration, platform triple, self-contained, explicit output directory.
func TestDotnetPublisherArgs(t *testing.T) {
	t.Parallel()

	publisher := NewDotnetPublisher("SS14.Loader/SS14.Loader.csproj", "win-x64")
	require.Equal(t,
		[]string{
			"publish", "SS14.Loader/SS14.Loader.csproj",
			"-c", "Release",
			"-r", "win-x64",
			"--self-contained", "true",
			"-o", "out",
		},
		publisher.args("out"))
}

// TestHTTPFetcherDownload streams a served file to disk.
func TestHTTPFetcherDownload(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("runtime payload"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "runtime.zip")

	fetcher := NewHTTPFetcher(ts.Client())
	require.NoError(t, fetcher.Download(context.Background(), ts.URL, dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []byte("runtime payload"), contents)
}

// TestHTTPFetcherDownloadBadStatus treats any non-200 answer as a failed download.
func TestHTTPFetcherDownloadBadStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "runtime.zip")

	fetcher := NewHTTPFetcher(ts.Client())
	err := fetcher.Download(context.Background(), ts.URL, dest)
	require.ErrorIs(t, err, errBadHTTPStatus)

	// Nothing is written on failure.
	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}
