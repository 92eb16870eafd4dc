package steps

import (
	"context"
	"errors"
	"sort"

	"github.com/backmassage/qcrunner/internal/record"
)

// ErrStepFailed is returned by meta.fail.
var ErrStepFailed = errors.New("step failed")

func registerMetaSteps(r *Registry) {
	r.Register("meta", "annotate", "copy every parameter into an output column", StepFunc(metaAnnotate))
	r.Register("meta", "fail", "always fail (param message); for testing failure handling", StepFunc(metaFail))
}

// metaAnnotate adds params in key order so column order is stable across workers.
func metaAnnotate(_ context.Context, rec *record.Record, params Params) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := rec.AddOutput(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func metaFail(_ context.Context, _ *record.Record, params Params) error {
	if msg := params["message"]; msg != "" {
		return errors.New(msg)
	}
	return ErrStepFailed
}
