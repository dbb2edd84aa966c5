package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/predictions", handler.ListPredictionDays)
	mux.HandleFunc("GET /v1/predictions/{date}", handler.GetPredictionDay)
	mux.HandleFunc("GET /v1/stats", handler.GetStats)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/generate", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunGenerateJob)))
}
