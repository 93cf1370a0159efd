// Package httpapi exposes the engine and the catalog over JSON/HTTP.
//
// Routes are registered on a net/http ServeMux using method patterns.
// Everything except the banner, registration, login and /metrics sits
// behind middleware.Guard. Every error body has the shape
//
//	{"code": "...", "message": "...", "fields": {...}}
//
// with the HTTP status derived from the code.
package httpapi
