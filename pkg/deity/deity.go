// Package deity resolves a submitted deity_id to the temple name the
// vector store and result cache index poems under. It ships a built-in
// mapping a deployer can extend or override via configuration; it is not
// itself a source of poem content.
package deity

import (
	"fmt"

	"github.com/codeready-toolchain/fortuned/pkg/config"
)

// builtinTemples is the default deity-to-temple mapping, grounded on the
// corpus crawlers that seed the vector store: Asakusa, GuanYu, Mazu,
// YueLao, and Zhusheng temples, plus GuanYin's hundred-poem set.
var builtinTemples = map[string]string{
	"guan_yin": "GuanYin100",
	"mazu":     "Mazu",
	"guan_yu":  "GuanYu",
	"yue_lao":  "YueLao",
	"zhu_sheng": "Zhusheng",
	"asakusa":  "Asakusa",
}

// Registry resolves deity_id to temple name.
type Registry struct {
	temples map[string]string
}

// New builds a Registry from the built-in mapping overlaid with overrides
// (typically config.Config.DeityTemples).
func New(overrides map[string]string) *Registry {
	temples := make(map[string]string, len(builtinTemples)+len(overrides))
	for k, v := range builtinTemples {
		temples[k] = v
	}
	for k, v := range overrides {
		temples[k] = v
	}
	return &Registry{temples: temples}
}

// NewFromConfig builds a Registry using cfg.DeityTemples as overrides.
func NewFromConfig(cfg *config.Config) *Registry {
	return New(cfg.DeityTemples)
}

// Resolve returns the temple name for deityID, or config.ErrDeityNotFound
// wrapped with the offending id.
func (r *Registry) Resolve(deityID string) (string, error) {
	temple, ok := r.temples[deityID]
	if !ok {
		return "", fmt.Errorf("%w: %s", config.ErrDeityNotFound, deityID)
	}
	return temple, nil
}

// Has reports whether deityID has a known temple mapping.
func (r *Registry) Has(deityID string) bool {
	_, ok := r.temples[deityID]
	return ok
}
