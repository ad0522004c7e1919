//go:build !onnx

package commands

import (
	"errors"

	"github.com/becomeliminal/nim-memory/config"
	"github.com/becomeliminal/nim-memory/memory"
)

func newONNXEmbedder(config.EmbeddingConfig) (memory.Embedder, func() error, error) {
	return nil, nil, errors.New("onnx embedder not compiled in; rebuild with -tags onnx")
}
