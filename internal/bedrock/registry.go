package bedrock

import (
	"sort"
	"strings"
)

// Registry maps logical model ids to the inference profile that must be
// used to reach them in this region. It is read-only after construction.
type Registry struct {
	profiles map[string]string
}

// NewRegistry copies profiles, dropping entries with a blank model or address
// and entries whose address is the model id itself.
func NewRegistry(profiles map[string]string) *Registry {
	r := &Registry{profiles: make(map[string]string, len(profiles))}
	for model, address := range profiles {
		model = strings.TrimSpace(model)
		address = strings.TrimSpace(address)
		if model == "" || address == "" || address == model {
			continue
		}
		r.profiles[model] = address
	}
	return r
}

// Resolve returns the inference profile for model. ok is false when the
// model should be invoked directly by its id.
func (r *Registry) Resolve(model string) (address string, ok bool) {
	if r == nil {
		return "", false
	}
	address, ok = r.profiles[model]
	return address, ok
}

// Models returns the routed model ids in sorted order.
func (r *Registry) Models() []string {
	if r == nil {
		return nil
	}
	models := make([]string, 0, len(r.profiles))
	for model := range r.profiles {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
