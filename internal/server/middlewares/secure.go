package middlewares

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

const stsMaxAge = 365 * 24 * 60 * 60

// Secure sets HSTS and nosniff on responses of a server that terminates TLS itself.
// There is no plain listener, so nothing is redirected.
func Secure() gin.HandlerFunc {
	return secure.New(secure.Config{
		STSSeconds:           stsMaxAge,
		STSIncludeSubdomains: true,
		ContentTypeNosniff:   true,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
	})
}
