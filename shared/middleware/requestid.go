package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDHeader carries the request id between gateway and services
	RequestIDHeader = "X-Request-ID"

	loggerKey = "logger"
)

// Identity headers the gateway sets from the token it verified. Services
// still authenticate the bearer token themselves; the headers only label the
// request log, so a line written before authentication can be traced to a user.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
	HeaderCompanyID = "X-User-Company-ID"
)

// IdentityHeaders lists every header the gateway owns
var IdentityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole, HeaderCompanyID}

// RequestID reuses an incoming X-Request-ID or mints one, echoes it on the
// response and stores a request-scoped logger
func RequestID(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, id)
		}
		c.Header(RequestIDHeader, id)

		fields := logrus.Fields{
			"service":    service,
			"request_id": id,
		}
		if forwarded := c.GetHeader(HeaderUserID); forwarded != "" {
			fields["forwarded_user_id"] = forwarded
		}
		if forwarded := c.GetHeader(HeaderCompanyID); forwarded != "" {
			fields["forwarded_company_id"] = forwarded
		}
		c.Set(loggerKey, logrus.WithFields(fields))
		c.Next()
	}
}

// Logger returns the request-scoped logger, or the standard logger outside a request
func Logger(c *gin.Context) *logrus.Entry {
	if value, exists := c.Get(loggerKey); exists {
		if entry, ok := value.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
