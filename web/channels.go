package web

import (
	"net/http"

	"github.com/dagwatch/dagwatch/core"
)

func (s *Server) listChannelsHandler(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "channels", channels)
}

func (s *Server) listProvidersHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeSuccess(w, "providers", core.ProviderTypes())
}

func (s *Server) getChannelHandler(w http.ResponseWriter, r *http.Request) {
	ch, err := s.store.ChannelByName(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "channel", ch)
}

func (s *Server) createChannelHandler(w http.ResponseWriter, r *http.Request) {
	var req channelCreateRequest
	if !s.decode(w, r, &req) {
		return
	}

	providerType := core.ProviderType(req.ProviderType)
	// Plugin-level validation gates the write: a channel row never exists
	// with a configuration its provider cannot deliver through.
	if err := s.dispatcher.Validate(providerType, req.Configuration); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.store.InsertChannel(r.Context(), &core.Channel{
		Name:          req.Name,
		ProviderType:  providerType,
		Configuration: req.Configuration,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "channel", created)
}

func (s *Server) updateChannelHandler(w http.ResponseWriter, r *http.Request) {
	var req channelUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	providerType := core.ProviderType(req.ProviderType)
	if err := s.dispatcher.Validate(providerType, req.Configuration); err != nil {
		s.writeError(w, err)
		return
	}

	saved, err := s.store.UpdateChannel(r.Context(), &core.Channel{
		Name:          r.PathValue("name"),
		ProviderType:  providerType,
		Configuration: req.Configuration,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "channel", saved)
}
