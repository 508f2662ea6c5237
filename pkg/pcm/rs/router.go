package rs

import "github.com/go-chi/chi/v5"

// Mount attaches the RS's discovery and protected FHIR-style routes to r
// under the fixed base path (spec §6: "GET /r4/.well-known/smart-configuration,
// GET /r4/metadata, {GET,POST,PUT} /r4/{...}[/:id]").
func (s *Server) Mount(r chi.Router) {
	r.Get("/.well-known/smart-configuration", s.SmartConfiguration)
	r.Get("/metadata", s.Metadata)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireAuth)

		protected.Route("/Organization", func(r chi.Router) {
			r.Get("/", s.SearchOrganizations)
			r.Get("/{id}", s.GetOrganization)
			r.Put("/{id}", s.UpdateOrganization)
		})

		protected.Route("/Endpoint", func(r chi.Router) {
			r.Get("/", s.SearchEndpoints)
			r.Post("/", s.CreateEndpoint)
			r.Get("/{id}", s.GetEndpoint)
			r.Put("/{id}", s.UpdateEndpoint)
		})

		protected.Route("/HealthcareService", func(r chi.Router) {
			r.Get("/", s.SearchHealthcareServices)
			r.Post("/", s.CreateHealthcareService)
			r.Get("/{id}", s.GetHealthcareService)
			r.Put("/{id}", s.UpdateHealthcareService)
		})

		protected.Route("/Consent", func(r chi.Router) {
			r.Get("/", s.SearchConsents)
			r.Post("/", s.CreateConsent)
			r.Get("/{id}", s.GetConsent)
			r.Put("/{id}", s.UpdateConsent)
			r.Post("/{id}/$approve", s.Approve)
			r.Post("/{id}/$reject", s.Reject)
		})

		protected.Route("/VerificationResult", func(r chi.Router) {
			r.Get("/", s.SearchVerificationResults)
			r.Post("/", s.CreateVerificationResult)
			r.Get("/{id}", s.GetVerificationResult)
		})
	})
}
