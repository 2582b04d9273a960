package headers

// Correlation Headers
const (
	// HeaderXCorrelationID carries the identifier tying the inbound call, the upstream call
	// and every access log line of one exchange together
	HeaderXCorrelationID = "X-Correlation-Id"

	// HeaderXRequestID is accepted by some callers instead of a correlation id; it is only logged
	HeaderXRequestID = "X-Request-Id"
)

// Authentication Headers
const (
	// HeaderAuthorization is the standard HTTP header used to carry authentication
	// credentials such as Bearer tokens or Basic auth
	// Format examples: "Bearer <token>", "Basic <base64-encoded-credentials>"
	HeaderAuthorization = "Authorization"

	HeaderCookie    = "Cookie"
	HeaderSetCookie = "Set-Cookie"

	SchemeBasic  = "Basic"
	SchemeBearer = "Bearer"
)

// Caller identity headers, consulted in this order when resolving the username
const (
	HeaderXUsername = "X-Username"
	HeaderXUser     = "X-User"
	HeaderXAuthUser = "X-Auth-User"
	HeaderUsername  = "Username"
	HeaderUser      = "User"
)

const HeaderContentType = "Content-Type"

// UsernameHeaders returns the identity headers in precedence order.
func UsernameHeaders() []string {
	return []string{
		HeaderXUsername,
		HeaderXUser,
		HeaderXAuthUser,
		HeaderUsername,
		HeaderUser,
	}
}
