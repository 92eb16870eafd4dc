package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/qcrunner/internal/record"
)

// --- Registry tests ---

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register("mod", "fn", "does things", StepFunc(func(context.Context, *record.Record, Params) error { return nil }))

	s, err := r.Resolve("mod", "fn")
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = r.Resolve("nope", "fn")
	assert.ErrorIs(t, err, ErrUnresolvableModule)

	_, err = r.Resolve("mod", "nope")
	assert.ErrorIs(t, err, ErrUnresolvableFunction)
}

func TestDefault_Catalogue(t *testing.T) {
	cat := Default().Catalogue()
	var refs []string
	for _, e := range cat {
		refs = append(refs, e.Ref())
		assert.NotEmpty(t, e.Summary, e.Ref())
	}
	assert.Equal(t, []string{
		"file.checksum", "file.stat",
		"image.header", "image.size_check",
		"meta.annotate", "meta.fail",
	}, refs)
}

// --- Built-in step tests ---

func run(t *testing.T, ref string, rec *record.Record, params Params) error {
	t.Helper()
	mod, fn := splitForTest(ref)
	s, err := Default().Resolve(mod, fn)
	require.NoError(t, err)
	return s.Run(context.Background(), rec, params)
}

func splitForTest(ref string) (string, string) {
	for i := range ref {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

func TestFileStat(t *testing.T) {
	path := writeFile(t, "a.img", []byte("12345"))
	rec := record.New(path, "out", nil)
	require.NoError(t, run(t, "file.stat", rec, nil))

	assert.Equal(t, []string{"filename", "size_bytes", "modified"}, rec.Output)
	v, _ := rec.Get("size_bytes")
	assert.Equal(t, int64(5), v)
	assert.Empty(t, rec.Warnings)
}

func TestFileStat_EmptyWarns(t *testing.T) {
	path := writeFile(t, "empty.img", nil)
	rec := record.New(path, "out", nil)
	require.NoError(t, run(t, "file.stat", rec, nil))
	assert.Equal(t, []string{"file is empty"}, rec.Warnings)
}

func TestFileStat_Missing(t *testing.T) {
	rec := record.New(filepath.Join(t.TempDir(), "gone.img"), "out", nil)
	assert.Error(t, run(t, "file.stat", rec, nil))
}

func TestFileChecksum(t *testing.T) {
	path := writeFile(t, "a.img", []byte("pixels"))
	rec := record.New(path, "out", nil)
	require.NoError(t, run(t, "file.checksum", rec, nil))

	sum := sha256.Sum256([]byte("pixels"))
	v, _ := rec.Get("checksum")
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), v)
	assert.True(t, rec.HasHandle(), "checksum should use the shared handle")
	require.NoError(t, rec.Sanitize())
}

func TestFileChecksum_Algorithms(t *testing.T) {
	path := writeFile(t, "a.img", []byte("pixels"))
	for _, algo := range []string{"sha1", "md5", "SHA256"} {
		rec := record.New(path, "out", nil)
		require.NoError(t, run(t, "file.checksum", rec, Params{"algorithm": algo}), algo)
		rec.Sanitize()
	}

	rec := record.New(path, "out", nil)
	assert.Error(t, run(t, "file.checksum", rec, Params{"algorithm": "crc32"}))
}

func TestFileChecksum_Cancelled(t *testing.T) {
	path := writeFile(t, "a.img", []byte("pixels"))
	rec := record.New(path, "out", nil)
	defer rec.Sanitize()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := Default().Resolve("file", "checksum")
	assert.ErrorIs(t, s.Run(ctx, rec, nil), context.Canceled)
}

func TestImageHeader(t *testing.T) {
	path := writePNG(t, "tile.png", 40, 25)
	rec := record.New(path, "out", nil)
	defer rec.Sanitize()
	require.NoError(t, run(t, "image.header", rec, nil))

	assert.Equal(t, []string{"filename", "format", "width", "height", "megapixels"}, rec.Output)
	f, _ := rec.Get("format")
	w, _ := rec.Get("width")
	h, _ := rec.Get("height")
	mp, _ := rec.Get("megapixels")
	assert.Equal(t, "png", f)
	assert.Equal(t, 40, w)
	assert.Equal(t, 25, h)
	assert.Equal(t, 0.0, mp)
}

func TestImageHeader_NotAnImage(t *testing.T) {
	path := writeFile(t, "notes.img", []byte("definitely not pixels"))
	rec := record.New(path, "out", nil)
	defer rec.Sanitize()
	assert.Error(t, run(t, "image.header", rec, nil))
}

func TestHeaderInfo_Megapixels(t *testing.T) {
	assert.Equal(t, 12.0, HeaderInfo{Width: 4000, Height: 3000}.Megapixels())
	assert.Equal(t, 2.07, HeaderInfo{Width: 1920, Height: 1080}.Megapixels())
}

func TestImageSizeCheck(t *testing.T) {
	path := writePNG(t, "tile.png", 40, 25)

	tests := []struct {
		name     string
		params   Params
		warnings int
		wantErr  bool
	}{
		{"no limits", Params{}, 0, false},
		{"both satisfied", Params{"min_width": "10", "min_height": "10"}, 0, false},
		{"width too small", Params{"min_width": "100"}, 1, false},
		{"both too small", Params{"min_width": "100", "min_height": "100"}, 2, false},
		{"malformed", Params{"min_width": "wide"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record.New(path, "out", nil)
			defer rec.Sanitize()
			err := run(t, "image.size_check", rec, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rec.Warnings, tt.warnings)
		})
	}
}

func TestImageSizeCheck_UsesHeaderFields(t *testing.T) {
	// The input is not an image; the fields from an earlier step are enough.
	path := writeFile(t, "a.img", []byte("x"))
	rec := record.New(path, "out", nil)
	require.NoError(t, rec.Set("width", 5))
	require.NoError(t, rec.Set("height", 500))
	require.NoError(t, run(t, "image.size_check", rec, Params{"min_width": "10", "min_height": "10"}))
	assert.Equal(t, []string{"width 5 below minimum 10"}, rec.Warnings)
	assert.False(t, rec.HasHandle())
}

func TestMetaAnnotate(t *testing.T) {
	rec := record.New("a.img", "out", nil)
	require.NoError(t, run(t, "meta.annotate", rec, Params{"site": "lab-a", "batch": "7"}))
	assert.Equal(t, []string{"filename", "batch", "site"}, rec.Output)
	v, _ := rec.Get("site")
	assert.Equal(t, "lab-a", v)
}

func TestMetaAnnotate_ReservedParam(t *testing.T) {
	rec := record.New("a.img", "out", nil)
	err := run(t, "meta.annotate", rec, Params{"output": "name", "site": "lab-a"})
	assert.ErrorIs(t, err, record.ErrReservedKey)
	assert.Equal(t, []string{"filename"}, rec.Output)
}

func TestMetaFail(t *testing.T) {
	rec := record.New("a.img", "out", nil)
	assert.ErrorIs(t, run(t, "meta.fail", rec, nil), ErrStepFailed)
	assert.EqualError(t, run(t, "meta.fail", rec, Params{"message": "bad stain"}), "bad stain")
}

// --- Helpers ---

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writePNG(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}
