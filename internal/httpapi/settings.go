package httpapi

import (
	"io"
	"net/http"

	"github.com/gideonheart/voicegateway/internal/configstore"
	"github.com/gideonheart/voicegateway/internal/domain"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.GetSafe())
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.logger, domain.NewUserError(domain.CodeInvalidConfig, "request body too large or unreadable"))
		return
	}

	patch, err := configstore.ValidateSettingsPatch(raw)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.store.Update(patch)
	if s.metrics != nil {
		s.metrics.ConfigReloads.Inc()
	}
	respondJSON(w, http.StatusOK, s.store.GetSafe())
}
