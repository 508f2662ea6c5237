package dsrs

import "github.com/go-chi/chi/v5"

// Mount attaches the DS-RS's data route to r. A real deployment sits behind
// DS-GW, which has already rewritten Authorization to the PEP's local
// token before this is reached (spec §6 "PCM-UI and DS-GW stubs").
func (s *Server) Mount(r chi.Router) {
	r.Get("/Observation", s.HandleData)
}
