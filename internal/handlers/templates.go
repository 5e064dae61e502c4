package handlers

import (
	"errors"
	"net/http"

	"github.com/reelcraft/backend/internal/logging"
	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/videogen"
)

// TemplateHandler serves the template catalog.
type TemplateHandler struct {
	Catalog TemplateCatalog
}

// List handles GET /api/v1/templates requests.
func (h TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	templates, err := h.Catalog.ListTemplates(ctx)
	if err != nil {
		if errors.Is(err, videogen.ErrTemplateSourceUnavailable) {
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "template catalog unavailable"})
			return
		}
		logger.Error("template catalog fetch failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list templates"})
		return
	}
	if templates == nil {
		templates = []models.TemplateVideo{}
	}

	items := make([]map[string]any, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, map[string]any{
			"id":       tpl.ID,
			"name":     tpl.Name,
			"videoUrl": tpl.VideoURL,
			"category": tpl.Category,
			"cost":     videogen.TemplateCost(tpl.ID),
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"templates": items})
}
