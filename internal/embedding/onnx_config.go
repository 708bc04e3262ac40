package embedding

import "errors"

// ErrONNXUnavailable is returned by NewONNXEmbedder in builds without cgo.
var ErrONNXUnavailable = errors.New("ONNX embedder requires cgo; build with CGO_ENABLED=1 and onnxruntime")

// ONNXConfig configures an ONNX sentence-embedding model.
type ONNXConfig struct {
	ModelPath string
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string
	Dimensions  int
	MaxTokens   int
}
