// Package preprocess turns camera frames into the normalized tensor the
// gesture model was trained on.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsignal/internal/config"
)

// Size is the square input resolution of the model.
const Size = config.ModelInputSize

// Channels per pixel.
const Channels = 3

var (
	// ErrEmptyImage is returned for an empty or nil source.
	ErrEmptyImage = errors.New("empty image")
	// ErrTooSmall is returned when the source is smaller than Size in either dimension.
	ErrTooSmall = errors.New("image smaller than model input")
	// ErrPixelFormat is returned for sources that are not 8-bit, 3-channel.
	ErrPixelFormat = errors.New("unsupported pixel format")
)

// ImageNet statistics, in RGB order.
var (
	Mean = [Channels]float32{0.485, 0.456, 0.406}
	Std  = [Channels]float32{0.229, 0.224, 0.225}
)

// ChannelOrder is the byte order of a 3-channel source.
type ChannelOrder int

const (
	// BGR is what OpenCV cameras produce.
	BGR ChannelOrder = iota
	RGB
)

func (o ChannelOrder) String() string {
	if o == RGB {
		return "RGB"
	}
	return "BGR"
}

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor(shape [4]int) *Tensor {
	return &Tensor{Shape: shape, Data: make([]float32, shape[0]*shape[1]*shape[2]*shape[3])}
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// At returns the element at (n, i, j, k) in the tensor's own layout.
func (t *Tensor) At(n, i, j, k int) float32 {
	s := t.Shape
	return t.Data[((n*s[1]+i)*s[2]+j)*s[3]+k]
}

// NCHW returns a channel-first copy of an NHWC tensor.
func (t *Tensor) NCHW() *Tensor {
	n, h, w, c := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	out := NewTensor([4]int{n, c, h, w})
	for b := 0; b < n; b++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for ch := 0; ch < c; ch++ {
					src := ((b*h+y)*w+x)*c + ch
					dst := ((b*c+ch)*h+y)*w + x
					out.Data[dst] = t.Data[src]
				}
			}
		}
	}
	return out
}

// Tensorize resizes src to Size x Size (bilinear), flips it vertically,
// converts it to RGB and normalizes it with Mean and Std. The result has
// shape (1, Size, Size, 3). src is not modified.
func Tensorize(src gocv.Mat, order ChannelOrder) (*Tensor, error) {
	if src.Empty() {
		return nil, ErrEmptyImage
	}
	if src.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: %d channels, type %v", ErrPixelFormat, src.Channels(), src.Type())
	}
	if src.Cols() < Size || src.Rows() < Size {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooSmall, src.Cols(), src.Rows())
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(Size, Size), 0, 0, gocv.InterpolationLinear)

	// Texture rows come bottom-up; the model was trained on that orientation.
	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(resized, &flipped, 0)

	rgb := flipped
	if order == BGR {
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(flipped, &converted, gocv.ColorBGRToRGB)
		rgb = converted
	}

	return normalize(rgb.ToBytes()), nil
}

// normalize maps interleaved RGB bytes of a Size x Size image to an NHWC tensor.
func normalize(pix []byte) *Tensor {
	t := NewTensor([4]int{1, Size, Size, Channels})
	for i, v := range pix[:len(t.Data)] {
		c := i % Channels
		t.Data[i] = (float32(v)/255 - Mean[c]) / Std[c]
	}
	return t
}

// FromImage converts a Go image into a BGR Mat suitable for Tensorize.
// The caller owns the returned Mat.
func FromImage(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return m, fmt.Errorf("convert image: %w", err)
	}
	return m, nil
}
