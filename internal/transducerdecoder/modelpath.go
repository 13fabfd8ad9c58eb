package transducerdecoder

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveModelPaths validates and resolves a streaming model directory per
// SPEC_FULL.md §6: it must exist and contain vocab.txt plus both an encoder
// file (encoder-model.onnx or encoder.onnx) and a decoder-joint file
// (decoder_joint-model.onnx or decoder_joint.onnx). This is a pure
// filesystem check — it never touches the ONNX Runtime — so --healthcheck
// can validate nothing at all and a doctor check can validate paths without
// paying for runtime initialization.
func ResolveModelPaths(dir string) (encoderPath, jointPath, vocabPath string, err error) {
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return "", "", "", fmt.Errorf("model path %q: %w", dir, statErr)
	}
	if !info.IsDir() {
		return "", "", "", fmt.Errorf("model path %q must be a directory", dir)
	}

	vocabPath = filepath.Join(dir, "vocab.txt")
	if !fileExists(vocabPath) {
		return "", "", "", fmt.Errorf("model path %q is missing vocab.txt", dir)
	}

	encoderPath, err = firstExisting(dir, "encoder-model.onnx", "encoder.onnx")
	if err != nil {
		return "", "", "", err
	}
	jointPath, err = firstExisting(dir, "decoder_joint-model.onnx", "decoder_joint.onnx")
	if err != nil {
		return "", "", "", err
	}
	return encoderPath, jointPath, vocabPath, nil
}

func firstExisting(dir string, names ...string) (string, error) {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("model path %q is missing one of %v", dir, names)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
