// Package http exposes the booking API over net/http.
//
// Endpoints:
//   - POST /login: {"email","password"} -> {"success","token","expires_at","user"}.
//     The token is also returned in the X-Session-Token header and the
//     session_token cookie. Rate limited per client IP.
//   - POST /logout: revokes the presented session, clears the cookie. Idempotent.
//   - POST /sessions/refresh, GET /sessions, DELETE /users/{id}/sessions.
//   - POST /bookings: creates a pending booking. The session is optional; guests
//     must send guest_name and guest_email. Responds 201 with booking_id.
//   - POST /bookings/update: {"booking_id","status"} moves a booking along the
//     status graph.
//   - GET /bookings?status=&q=, GET /bookings/{id}.
//   - GET /healthz, GET /metrics.
//
// Sessions are read from "Authorization: Bearer <token>" first, then from the
// session_token cookie. Every JSON response carries a "success" flag; failures add
// "error" and, for validation problems, an "errors" map keyed by field.
package http
