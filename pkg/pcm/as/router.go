package as

import "github.com/go-chi/chi/v5"

// Mount attaches the AS's two endpoints to r (spec §4.1).
func (s *Server) Mount(r chi.Router) {
	r.Post("/token", s.HandleToken)
	r.Post("/introspect", s.HandleIntrospect)
}
