package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/logging"
	"github.com/backmassage/qcrunner/internal/steps"
)

// Step is one resolved pipeline entry. It is immutable after [Load].
type Step struct {
	Ref      string // As written in the config, including any ":suffix".
	Module   string
	Function string // Without the suffix.
	Impl     steps.Step
	Params   steps.Params
}

// Queue is the ordered list of steps run against every file.
type Queue []Step

// Refs returns the configured references in order.
func (q Queue) Refs() []string {
	refs := make([]string, len(q))
	for i, s := range q {
		refs[i] = s.Ref
	}
	return refs
}

// Fingerprint digests the refs and params of q in order. Queues loaded from
// the same file and registry have equal fingerprints.
func (q Queue) Fingerprint() string {
	h := sha256.New()
	for _, s := range q {
		h.Write([]byte(s.Ref))
		h.Write([]byte{0})
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k + "=" + s.Params[k]))
			h.Write([]byte{0})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseRef splits "module.function[:suffix]" at the first dot and drops the
// suffix. Malformed refs report the same errors as unknown names.
func ParseRef(ref string) (module, function string, err error) {
	module, rest, ok := strings.Cut(ref, ".")
	if !ok || module == "" {
		return "", "", fmt.Errorf("%w: %q", steps.ErrUnresolvableModule, ref)
	}
	function, _, _ = strings.Cut(rest, ":")
	if function == "" {
		return "", "", fmt.Errorf("%w: %q", steps.ErrUnresolvableFunction, ref)
	}
	return module, function, nil
}

// Load builds the queue described by pf's [pipeline] section. Every entry is
// resolved before anything is returned, so an invalid pipeline never runs on
// any file. Load reads pf and reg only and may be called from any goroutine.
func Load(pf *config.File, reg *steps.Registry) (Queue, error) {
	refs, err := pf.PipelineSteps()
	if err != nil {
		return nil, err
	}

	queue := make(Queue, 0, len(refs))
	for _, ref := range refs {
		module, function, err := ParseRef(ref)
		if err != nil {
			return nil, err
		}
		impl, err := reg.Resolve(module, function)
		if err != nil {
			return nil, fmt.Errorf("pipeline step %q: %w", ref, err)
		}
		params, _ := pf.Section(ref)
		queue = append(queue, Step{
			Ref:      ref,
			Module:   module,
			Function: function,
			Impl:     impl,
			Params:   params,
		})
	}
	return queue, nil
}

func logQueue(log *logging.Logger, q Queue) {
	log.Info("Pipeline will use these steps:")
	for _, s := range q {
		if len(s.Params) > 0 {
			log.Info("\t\t%s\t%s\t(%d params)", s.Module, s.Function, len(s.Params))
		} else {
			log.Info("\t\t%s\t%s", s.Module, s.Function)
		}
	}
}
