package routes

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/arqbot/internal/chat"
)

// chatBodyLimit leaves room for images sent as data URLs
const chatBodyLimit = 20 << 20

const (
	msgEmptyQuestion     = "Mensagem ou imagem é necessária"
	msgInvalidRequest    = "Requisição inválida"
	msgConfigError       = "Erro de configuração no servidor. Por favor, contate o suporte."
	msgVisionConfigError = "Erro de configuração no servidor para análise de imagens. Por favor, contate o suporte."
	msgProcessingError   = "Erro ao processar a solicitação"
)

type chatRequest struct {
	Message string `json:"message"`
	Image   string `json:"image,omitempty"`
}

type chatMeta struct {
	FromCache bool `json:"fromCache"`
}

type chatResponse struct {
	ID       string   `json:"id"`
	Response string   `json:"response"`
	Meta     chatMeta `json:"meta"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, chatBodyLimit, &req); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("bad chat body")
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": msgInvalidRequest})
		return
	}

	answer, err := s.Chat.Ask(r.Context(), chat.Question{Message: req.Message, Image: req.Image})
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, chatResponse{
			ID:       answer.ID,
			Response: answer.Response,
			Meta:     chatMeta{FromCache: answer.FromCache},
		})
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": msgEmptyQuestion})
	case errors.Is(err, chat.ErrNotConfigured):
		hlog.FromRequest(r).Error().Err(err).Msg("chat generator missing")
		msg := msgConfigError
		if req.Image != "" {
			msg = msgVisionConfigError
		}
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": msg})
	default:
		hlog.FromRequest(r).Error().Err(err).Bool("image", req.Image != "").Msg("error in chat route")
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": msgProcessingError})
	}
}
