package common

// AuthorizationHeaderName carries the identity assertion as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"
