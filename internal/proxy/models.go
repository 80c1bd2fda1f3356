package proxy

import (
	"maps"
	"net/http"
	"slices"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// ModelMap resolves the model a client asks for to the upstream model.
type ModelMap struct {
	// Aliases maps client model names to upstream model names.
	Aliases map[string]string

	// Default is used for models without an alias. Empty passes the client's model
	// through unchanged.
	Default string
}

// Resolve returns the upstream model for model.
func (m ModelMap) Resolve(model string) string {
	if upstream, ok := m.Aliases[model]; ok && upstream != "" {
		return upstream
	}
	if m.Default != "" {
		return m.Default
	}
	return model
}

// modelsHandler lists the configured aliases in the Claude models format so
// clients can offer them for selection. The upstream model list is not queried
// because its names are not valid Claude model names.
func modelsHandler(models ModelMap) http.HandlerFunc {
	ids := slices.Sorted(maps.Keys(models.Aliases))

	list := types.ModelList{Data: make([]types.ModelInfo, 0, len(ids))}
	for _, id := range ids {
		list.Data = append(list.Data, types.ModelInfo{
			Type:        "model",
			ID:          id,
			DisplayName: id + " (" + models.Aliases[id] + ")",
		})
	}
	if len(ids) > 0 {
		list.FirstID = &ids[0]
		list.LastID = &ids[len(ids)-1]
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, list, http.StatusOK)
	}
}
