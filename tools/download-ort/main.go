// Build-time tool that fetches the native libraries hugot needs for local
// inference: the ONNX Runtime shared library and the HuggingFace tokenizers
// static library for the current platform.
//
// Required env: ORT_VERSION       (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR       (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// artifact describes one native library to fetch: where its release archive
// lives and the filename it should be installed under.
type artifact struct {
	name    string
	url     string
	install string
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fmt.Fprintln(os.Stderr, "ORT_VERSION env var is required")
		os.Exit(1)
	}

	tokVersion := os.Getenv("TOKENIZERS_VERSION")
	if tokVersion == "" {
		tokVersion = "1.24.0"
	}

	libDir := os.Getenv("ORT_LIB_DIR")
	if libDir == "" {
		libDir = "./lib"
	}

	if err := os.MkdirAll(libDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", libDir, err)
		os.Exit(1)
	}

	artifacts, err := platformArtifacts(ortVersion, tokVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, a := range artifacts {
		if err := install(a, libDir); err != nil {
			fmt.Fprintf(os.Stderr, "%s download failed: %v\n", a.name, err)
			os.Exit(1)
		}
	}
}

// platformArtifacts resolves the release archives for GOOS/GOARCH. ONNX
// Runtime names archives by x64/aarch64, tokenizers by amd64/x86_64, so the
// two mappings cannot share a table.
func platformArtifacts(ortVersion, tokVersion string) ([]artifact, error) {
	key := runtime.GOOS + "/" + runtime.GOARCH

	var ortArch, ortLib string
	switch key {
	case "linux/amd64":
		ortArch, ortLib = "linux-x64", "libonnxruntime.so"
	case "linux/arm64":
		ortArch, ortLib = "linux-aarch64", "libonnxruntime.so"
	case "darwin/arm64":
		ortArch, ortLib = "osx-arm64", "libonnxruntime.dylib"
	case "darwin/amd64":
		ortArch, ortLib = "osx-x86_64", "libonnxruntime.dylib"
	default:
		return nil, fmt.Errorf("no ORT archive for %s", key)
	}

	var tokArch string
	switch key {
	case "linux/amd64":
		tokArch = "linux-amd64"
	case "linux/arm64":
		tokArch = "linux-arm64"
	case "darwin/arm64":
		tokArch = "darwin-arm64"
	case "darwin/amd64":
		tokArch = "darwin-x86_64"
	}

	return []artifact{
		{
			name: "ORT",
			url: fmt.Sprintf(
				"https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz",
				ortVersion, ortArch, ortVersion,
			),
			install: ortLib,
		},
		{
			name: "tokenizers",
			url: fmt.Sprintf(
				"https://github.com/daulet/tokenizers/releases/download/v%s/libtokenizers.%s.tar.gz",
				tokVersion, tokArch,
			),
			install: "libtokenizers.a",
		},
	}, nil
}

func install(a artifact, libDir string) error {
	destPath := filepath.Join(libDir, a.install)
	if _, err := os.Stat(destPath); err == nil {
		fmt.Printf("%s already exists at %s, skipping\n", a.name, destPath)
		return nil
	}

	fmt.Printf("Downloading %s from %s\n", a.name, a.url)

	delay := 2 * time.Second
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetchInto(a, destPath); err == nil {
			fmt.Printf("%s installed to %s\n", a.name, destPath)
			return nil
		}
	}
	return err
}

func fetchInto(a artifact, destPath string) error {
	resp, err := http.Get(a.url) //nolint:gosec
	if err != nil {
		return fmt.Errorf("fetch %s: %w", a.url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, a.url)
	}

	return extractMember(resp.Body, a.install, destPath)
}

// extractMember streams a .tgz archive and writes the first regular file
// matching wanted to destPath. Versioned variants such as
// libonnxruntime.1.23.2.dylib also match, so symlinked archives work too.
func extractMember(body io.Reader, wanted, destPath string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	stem := strings.TrimSuffix(wanted, filepath.Ext(wanted))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != wanted && !strings.HasPrefix(base, stem+".") {
			continue
		}

		return writeAtomic(destPath, tr)
	}

	return fmt.Errorf("%s not found in archive", wanted)
}

// writeAtomic writes src to a temp file in the destination directory and
// renames it into place, so an interrupted download never leaves a truncated
// library behind.
func writeAtomic(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
