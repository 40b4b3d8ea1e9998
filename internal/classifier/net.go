package classifier

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsignal/internal/config"
	"github.com/ayusman/handsignal/internal/preprocess"
)

// Net is a Model backed by the OpenCV DNN module. It loads any format
// OpenCV understands; ONNX is the usual choice.
type Net struct {
	mu     sync.Mutex
	net    gocv.Net
	layout config.Layout
}

// LoadNet reads the model at path. layout is the input layout the model was
// exported with.
func LoadNet(path string, layout config.Layout) (*Net, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	n := gocv.ReadNet(path, "")
	if n.Empty() {
		n.Close()
		return nil, fmt.Errorf("load model %s: empty network", path)
	}
	return &Net{net: n, layout: layout}, nil
}

// Forward implements Model.
func (n *Net) Forward(t *preprocess.Tensor) ([]float32, error) {
	if t == nil || t.Len() == 0 {
		return nil, preprocess.ErrEmptyImage
	}
	if n.layout == config.LayoutNCHW {
		t = t.NCHW()
	}

	blob, err := gocv.NewMatWithSizesFromBytes(t.Shape[:], gocv.MatTypeCV32F, float32Bytes(t.Data))
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, ErrNoScores
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return append([]float32(nil), data...), nil
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

func float32Bytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}
