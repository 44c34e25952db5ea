// Package imaging prepares product photos for the vision API: load from a URL
// or a local file, shrink to fit a bounding box, flatten to RGB, and encode as
// base64 JPEG.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // imported to register decoder
	"image/jpeg"
	_ "image/png" // imported to register decoder
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // imported to register decoder
)

const (
	// DefaultMaxSize is the bounding box edge in pixels.
	DefaultMaxSize = 512
	// DefaultQuality is the JPEG quality used for the encoded image.
	DefaultQuality = 85
	// DefaultTimeout is the download timeout for remote images.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is sent with remote image requests.
	DefaultUserAgent = "Mozilla/5.0"

	urlPrefix = "http"
)

// Error message and format string constants.
const (
	errFmtBuildRequest = "failed to build image request for %s: %w"
	errFmtFetch        = "failed to fetch image %s: %w"
	errFmtStatus       = "%w: %s returned %d"
	errFmtReadBody     = "failed to read image body from %s: %w"
	errFmtReadFile     = "failed to read image file %s: %w"
	errFmtDecode       = "%w: %s: %w"
	errFmtEncode       = "failed to encode JPEG: %w"
)

var (
	// ErrImageFetch is returned when a remote image responds with a non-success status.
	ErrImageFetch = errors.New("image download failed")
	// ErrImageDecode is returned when image bytes cannot be decoded.
	ErrImageDecode = errors.New("image could not be decoded")
)

// Encoder loads and encodes product images.
type Encoder struct {
	httpClient *http.Client
	userAgent  string
	maxWidth   int
	maxHeight  int
	quality    int
}

// Options configures an Encoder. Zero values take the defaults.
type Options struct {
	MaxSize int
	Quality int
	Timeout time.Duration
}

// NewEncoder creates an Encoder.
func NewEncoder(opts Options) *Encoder {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Encoder{
		httpClient: &http.Client{Timeout: opts.Timeout},
		userAgent:  DefaultUserAgent,
		maxWidth:   opts.MaxSize,
		maxHeight:  opts.MaxSize,
		quality:    opts.Quality,
	}
}

// EncodeBase64 runs the full pipeline for source and returns base64 JPEG data.
func (e *Encoder) EncodeBase64(ctx context.Context, source string) (string, error) {
	img, err := e.Load(ctx, source)
	if err != nil {
		return "", err
	}

	img = Fit(img, e.maxWidth, e.maxHeight)

	data, err := EncodeJPEG(FlattenRGB(img), e.quality)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Load decodes an image from a URL (any source starting with "http") or a local path.
func (e *Encoder) Load(ctx context.Context, source string) (image.Image, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(source, urlPrefix) {
		data, err = e.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			err = fmt.Errorf(errFmtReadFile, source, err)
		}
	}

	if err != nil {
		return nil, err
	}

	img, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return nil, fmt.Errorf(errFmtDecode, ErrImageDecode, source, decodeErr)
	}

	return img, nil
}

func (e *Encoder) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf(errFmtBuildRequest, url, err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf(errFmtStatus, ErrImageFetch, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadBody, url, err)
	}

	return data, nil
}

// Fit shrinks img to fit within maxWidth x maxHeight, keeping the aspect
// ratio. Images already inside the box are returned unchanged.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	scale := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	newWidth := max(int(float64(width)*scale+0.5), 1)
	newHeight := max(int(float64(height)*scale+0.5), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

// FlattenRGB composites img onto a white background, dropping any alpha
// channel. Grayscale images are returned unchanged.
func FlattenRGB(img image.Image) image.Image {
	if _, ok := img.(*image.Gray); ok {
		return img
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)

	return dst
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer

	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	if err != nil {
		return nil, fmt.Errorf(errFmtEncode, err)
	}

	return buf.Bytes(), nil
}
