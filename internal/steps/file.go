package steps

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"time"

	"github.com/backmassage/qcrunner/internal/record"
)

func registerFileSteps(r *Registry) {
	r.Register("file", "stat", "size_bytes and modified time of the input", StepFunc(fileStat))
	r.Register("file", "checksum", "hex digest of the input (param algorithm: sha256|sha1|md5)", StepFunc(fileChecksum))
}

func fileStat(_ context.Context, rec *record.Record, _ Params) error {
	fi, err := os.Stat(rec.Path())
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		rec.Warn("file is empty")
	}
	return errors.Join(
		rec.AddOutput("size_bytes", fi.Size()),
		rec.AddOutput("modified", fi.ModTime().UTC().Format(time.RFC3339)),
	)
}

func fileChecksum(ctx context.Context, rec *record.Record, params Params) error {
	algo := strings.ToLower(strings.TrimSpace(params["algorithm"]))
	if algo == "" {
		algo = "sha256"
	}
	var h hash.Hash
	switch algo {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	case "md5":
		h = md5.New()
	default:
		return fmt.Errorf("unsupported checksum algorithm %q", algo)
	}

	rs, err := rec.Open()
	if err != nil {
		return err
	}
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: rs}); err != nil {
		return fmt.Errorf("checksum %s: %w", rec.Path(), err)
	}
	return rec.AddOutput("checksum", algo+":"+hex.EncodeToString(h.Sum(nil)))
}

// ctxReader stops long reads of large inputs once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
