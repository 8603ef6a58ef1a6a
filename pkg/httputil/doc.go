// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and the middleware the API server is assembled from.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, result)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteNotFoundError(w, "unknown source")
//	httputil.WriteConflict(w, "migration rolled back")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CompareRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	sourceID, ok := httputil.ParsePathStringOrError(w, r, "sourceId")
//	version, ok := httputil.ParsePathIntOrError(w, r, "version")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MetricsMiddleware(metrics),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(10*1024*1024), // 10MB
//	)
package httputil
