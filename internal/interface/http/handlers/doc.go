// Package handlers contains the pieces of the HTTP API that do not depend on
// a particular route: the JSON envelope, error-to-status mapping, gin
// middleware and health checks.
//
// # Envelope
//
// Every API response has the shape
//
//	{"success": true, "data": {...}, "request_id": "..."}
//	{"success": false, "error": {"code": "...", "message": "..."}, "request_id": "..."}
//
// RespondError maps domain error kinds to status codes: validation 400,
// unauthorized 401, not found 404, conflict 409, unavailable 503 and
// anything else 500.
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker(version)
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//
// # Authentication
//
// Authenticator.RequireAuth accepts "Authorization: Bearer <token>" or the
// session cookie set at login, and rejects revoked tokens.
package handlers
