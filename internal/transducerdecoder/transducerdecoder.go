// Package transducerdecoder binds the streaming worker (SPEC_FULL.md §4.3)
// to a pair of ONNX graphs (encoder, decoder-joint) through
// github.com/yalue/onnxruntime_go, the ONNX Runtime binding grounded on this
// pack's local ONNX inference wiring
// (nupi-ai-plugin-vad-local-silero/internal/engine/silero.go): initialize the
// runtime once, build advanced sessions against named inputs/outputs, run,
// and read back tensor data directly.
package transducerdecoder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rbright/sttworkers/internal/decode"
)

// frameHopSeconds is the encoder's assumed frame stride; token timestamps
// are derived as frameIndex * frameHopSeconds, relative to the window start
// handed to Transcribe (SPEC_FULL.md §9 "Token timestamp semantics").
const frameHopSeconds = 0.01 // 10ms hop, a typical transducer encoder stride

// maxSymbolsPerFrame bounds the inner greedy decode loop so a pathological
// joint-network output cannot spin forever on one encoder frame.
const maxSymbolsPerFrame = 8

var (
	initOnce sync.Once
	initErr  error
)

func ensureRuntime(sharedLibPath string) error {
	initOnce.Do(func() {
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Decoder wraps one loaded encoder/decoder-joint pair plus vocabulary.
type Decoder struct {
	encoder *ort.DynamicAdvancedSession
	joint   *ort.DynamicAdvancedSession
	vocab   []string

	mu sync.Mutex
}

// Open validates and loads the encoder, decoder-joint, and vocabulary found
// under modelDir (SPEC_FULL.md §6 model path validation). sharedLibPath may
// be empty to use the runtime's default ONNX Runtime shared library lookup.
func Open(modelDir string, sharedLibPath string) (*Decoder, error) {
	encoderPath, jointPath, vocabPath, err := ResolveModelPaths(modelDir)
	if err != nil {
		return nil, err
	}

	if err := ensureRuntime(sharedLibPath); err != nil {
		return nil, fmt.Errorf("transducerdecoder: initialize onnx runtime: %w", err)
	}

	vocab, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}

	encoder, err := ort.NewDynamicAdvancedSession(
		encoderPath,
		[]string{"audio_signal"},
		[]string{"encoder_out"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("transducerdecoder: load encoder %q: %w", encoderPath, err)
	}

	joint, err := ort.NewDynamicAdvancedSession(
		jointPath,
		[]string{"encoder_frame", "prev_label"},
		[]string{"logits"},
		nil,
	)
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("transducerdecoder: load decoder-joint %q: %w", jointPath, err)
	}

	return &Decoder{encoder: encoder, joint: joint, vocab: vocab}, nil
}

// Transcribe runs the encoder over samples (16 kHz mono float32, enforced by
// the caller) and greedily decodes a token sequence via the decoder-joint
// network, one symbol emission at a time per encoder frame.
func (d *Decoder) Transcribe(samples []float32, sampleRate int) (decode.Segments, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoderOut, frames, hidden, err := d.runEncoder(samples)
	if err != nil {
		return decode.Segments{}, err
	}

	var (
		tokens   []decode.Token
		pieces   []string
		prevWord bool
		prevID   int64 = blankSymbol
	)

	for frame := 0; frame < frames; frame++ {
		frameVec := encoderOut[frame*hidden : (frame+1)*hidden]
		for symbolsThisFrame := 0; symbolsThisFrame < maxSymbolsPerFrame; symbolsThisFrame++ {
			labelID, err := d.runJoint(frameVec, prevID)
			if err != nil {
				return decode.Segments{}, err
			}
			if labelID == blankSymbol {
				break
			}
			if int(labelID) >= len(d.vocab) {
				return decode.Segments{}, fmt.Errorf("transducerdecoder: joint produced out-of-vocabulary label %d", labelID)
			}

			piece, leadingSpace := pieceText(d.vocab[labelID])
			if piece != "" {
				if leadingSpace && prevWord {
					pieces = append(pieces, " ")
				}
				pieces = append(pieces, piece)
				prevWord = true
			}

			endSeconds := float64(frame+1) * frameHopSeconds
			tokens = append(tokens, decode.Token{
				Text:         piece,
				StartSeconds: float64(frame) * frameHopSeconds,
				EndSeconds:   endSeconds,
			})

			prevID = labelID
		}
	}

	return decode.Segments{
		Text:   joinNoSpaces(pieces),
		Tokens: tokens,
	}, nil
}

func joinNoSpaces(pieces []string) string {
	var out string
	for _, p := range pieces {
		out += p
	}
	return out
}

// runEncoder executes the encoder over the full sample window and returns
// its flattened [frames, hidden] output.
func (d *Decoder) runEncoder(samples []float32) (output []float32, frames int, hidden int, err error) {
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("transducerdecoder: build input tensor: %w", err)
	}
	defer input.Destroy()

	var outputTensors []ort.Value = []ort.Value{nil}
	if err := d.encoder.Run([]ort.Value{input}, outputTensors); err != nil {
		return nil, 0, 0, fmt.Errorf("transducerdecoder: run encoder: %w", err)
	}
	out, ok := outputTensors[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, 0, fmt.Errorf("transducerdecoder: unexpected encoder output tensor type")
	}
	defer out.Destroy()

	shape := out.GetShape()
	if len(shape) != 3 {
		return nil, 0, 0, fmt.Errorf("transducerdecoder: unexpected encoder output rank %d", len(shape))
	}
	frames = int(shape[1])
	hidden = int(shape[2])

	data := out.GetData()
	flat := make([]float32, len(data))
	copy(flat, data)
	return flat, frames, hidden, nil
}

// runJoint runs the decoder-joint network on one encoder frame plus the
// previously emitted label, returning the argmax label id (greedy search).
func (d *Decoder) runJoint(frameVec []float32, prevLabel int64) (int64, error) {
	frameTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(frameVec))), append([]float32(nil), frameVec...))
	if err != nil {
		return 0, fmt.Errorf("transducerdecoder: build frame tensor: %w", err)
	}
	defer frameTensor.Destroy()

	labelTensor, err := ort.NewTensor(ort.NewShape(1), []int64{prevLabel})
	if err != nil {
		return 0, fmt.Errorf("transducerdecoder: build label tensor: %w", err)
	}
	defer labelTensor.Destroy()

	outputTensors := []ort.Value{nil}
	if err := d.joint.Run([]ort.Value{frameTensor, labelTensor}, outputTensors); err != nil {
		return 0, fmt.Errorf("transducerdecoder: run joint: %w", err)
	}
	logits, ok := outputTensors[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("transducerdecoder: unexpected joint output tensor type")
	}
	defer logits.Destroy()

	data := logits.GetData()
	best := 0
	for i, v := range data {
		if v > data[best] {
			best = i
		}
	}
	return int64(best), nil
}

// Close releases both ONNX sessions.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.encoder != nil {
		d.encoder.Destroy()
		d.encoder = nil
	}
	if d.joint != nil {
		d.joint.Destroy()
		d.joint = nil
	}
	return nil
}
