package telephony

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"comms-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	twilioclient "github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// RequireSignature rejects callbacks whose X-Twilio-Signature does not match.
// publicBaseURL must be the scheme+host Twilio was configured with, since the
// signature covers the URL as Twilio saw it, not as the proxy forwarded it.
//
// Form posts are checked over the URL plus the sorted POST params. JSON posts
// must carry a bodySHA256 query param; the signature covers that URL and the
// hash must match the body, so a JSON body cannot be swapped under a valid URL.
// Ref: https://www.twilio.com/docs/usage/security#validating-requests
func RequireSignature(authToken, publicBaseURL string) gin.HandlerFunc {
	validator := twilioclient.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		log := logger.FromGin(c)
		fullURL := base + c.Request.URL.RequestURI()
		sig := c.GetHeader(signatureHeader)

		var ok bool
		if isJSON(c.GetHeader("Content-Type")) {
			body, err := readLimited(c.Request)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid body"})
				return
			}
			// Handlers parse the body again.
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			ok = sig != "" && validator.ValidateBody(fullURL, body, sig)
		} else {
			if err := c.Request.ParseForm(); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid form"})
				return
			}
			params := make(map[string]string, len(c.Request.PostForm))
			for k := range c.Request.PostForm {
				params[k] = c.Request.PostForm.Get(k)
			}
			ok = sig != "" && validator.Validate(fullURL, params, sig)
		}

		if !ok {
			log.Warn("twilio signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "invalid signature"})
			return
		}
		c.Next()
	}
}
