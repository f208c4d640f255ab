// Build-time tool that downloads a sentence-transformer model for the local
// embedding provider. The default destination feeds //go:embed static builds
// (build tag embed_model); pass a data-dir models path to provision a runtime
// cache instead.
//
// Usage: go run ./tools/download-model [-model repo] [dest]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
)

const defaultModelRepo = "sentence-transformers/all-MiniLM-L6-v2"

func main() {
	modelRepo := flag.String("model", defaultModelRepo, "HuggingFace model repository")
	flag.Parse()

	dest := "infrastructure/provider/models"
	if flag.NArg() > 0 {
		dest = flag.Arg(0)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", dest, err)
		os.Exit(1)
	}

	fmt.Printf("Downloading %s to %s...\n", *modelRepo, dest)

	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	modelPath, err := hugot.DownloadModel(*modelRepo, dest, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download model: %v\n", err)
		os.Exit(1)
	}

	// The provider discovers models by scanning for a subdirectory that
	// contains tokenizer.json, so an incomplete download must fail here
	// rather than at first inference.
	if _, err := os.Stat(filepath.Join(modelPath, "tokenizer.json")); err != nil {
		fmt.Fprintf(os.Stderr, "model at %s is missing tokenizer.json: %v\n", modelPath, err)
		os.Exit(1)
	}

	fmt.Printf("Model downloaded to %s\n", modelPath)
}
