//go:build onnx

package commands

import (
	"github.com/becomeliminal/nim-memory/config"
	"github.com/becomeliminal/nim-memory/memory"
	"github.com/becomeliminal/nim-memory/memory/embedder/onnx"
)

func newONNXEmbedder(c config.EmbeddingConfig) (memory.Embedder, func() error, error) {
	e, err := onnx.New(onnx.Config{
		SharedLibraryPath: c.ONNX.Library,
		ModelPath:         c.ONNX.Model,
		TokenizerPath:     c.ONNX.Tokenizer,
		Dimensions:        c.Dimensions,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, e.Close, nil
}
