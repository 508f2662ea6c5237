package pep

import "github.com/go-chi/chi/v5"

// Mount attaches the PEP's single operation to r (spec §4.3).
func (s *Server) Mount(r chi.Router) {
	r.Get("/auth-check", s.HandleAuthCheck)
}
