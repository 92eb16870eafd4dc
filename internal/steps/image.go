package steps

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	// Registered decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/backmassage/qcrunner/internal/record"
)

func registerImageSteps(r *Registry) {
	r.Register("image", "header", "format, width, height and megapixels from the image header", StepFunc(imageHeader))
	r.Register("image", "size_check", "warn when smaller than min_width / min_height", StepFunc(imageSizeCheck))
}

// HeaderInfo is the decoded image header.
type HeaderInfo struct {
	Format string
	Width  int
	Height int
}

// Megapixels returns Width*Height in millions, rounded to two decimals.
func (h HeaderInfo) Megapixels() float64 {
	mp := float64(h.Width) * float64(h.Height) / 1e6
	return float64(int64(mp*100+0.5)) / 100
}

// ReadHeader decodes only the header of the record's input.
func ReadHeader(rec *record.Record) (HeaderInfo, error) {
	rs, err := rec.Open()
	if err != nil {
		return HeaderInfo{}, err
	}
	cfg, format, err := image.DecodeConfig(rs)
	if err != nil {
		return HeaderInfo{}, fmt.Errorf("decode image header %s: %w", rec.Path(), err)
	}
	return HeaderInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func imageHeader(_ context.Context, rec *record.Record, _ Params) error {
	h, err := ReadHeader(rec)
	if err != nil {
		return err
	}
	return errors.Join(
		rec.AddOutput("format", h.Format),
		rec.AddOutput("width", h.Width),
		rec.AddOutput("height", h.Height),
		rec.AddOutput("megapixels", h.Megapixels()),
	)
}

func imageSizeCheck(_ context.Context, rec *record.Record, params Params) error {
	minW, err := intParam(params, "min_width")
	if err != nil {
		return err
	}
	minH, err := intParam(params, "min_height")
	if err != nil {
		return err
	}

	w, wok := intField(rec, "width")
	h, hok := intField(rec, "height")
	if !wok || !hok {
		info, err := ReadHeader(rec)
		if err != nil {
			return err
		}
		w, h = info.Width, info.Height
	}

	if minW > 0 && w < minW {
		rec.Warn("width %d below minimum %d", w, minW)
	}
	if minH > 0 && h < minH {
		rec.Warn("height %d below minimum %d", h, minH)
	}
	return nil
}

// intParam returns 0 for an absent key and an error for a malformed one.
func intParam(params Params, key string) (int, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number (got %q)", key, raw)
	}
	return n, nil
}

func intField(rec *record.Record, key string) (int, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}
