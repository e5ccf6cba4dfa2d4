package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func SetupRoutes(handler *Handler, stream *EventStream) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	for _, mw := range SetupMiddleware() {
		r.Use(mw)
	}

	// Event stream outlives the request timeout
	if stream != nil {
		r.Get("/ws", stream.HandleWebSocket)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		// JSON content type
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Health check endpoint
		r.Get("/health", handler.HealthCheck)

		// API routes
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/stats", handler.GetStats)
			r.Post("/viewer", handler.MoveViewer)

			r.Route("/chunks", func(r chi.Router) {
				r.Get("/", handler.ListChunks)
				r.Route("/{x}/{z}", func(r chi.Router) {
					r.Get("/", handler.GetChunk)
					r.Get("/mesh", handler.GetChunkMesh)
					r.Get("/texture.png", handler.GetChunkTexture)
					r.Get("/heightmap.png", handler.GetChunkHeightmap)
					r.Post("/request", handler.RequestChunk)
				})
			})

			r.Route("/biomes", func(r chi.Router) {
				r.Get("/", handler.ListBiomes)
				// Sampling noise per chunk is the most expensive read
				r.With(RateLimitMiddleware(60)).Get("/map.png", handler.GetBiomeMap)
			})
		})
	})

	return r
}
