// security.go sets protective response headers. The service speaks JSON and
// serves signed media files, and the two surfaces need different policies:
// the API forbids all embedding while the playback surface must stay
// fetchable by video elements on the app's origin.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders is a header profile applied to responses. Zero or empty
// fields leave the corresponding header unset.
type SecurityHeaders struct {
	// HSTSMaxAgeSecs is the Strict-Transport-Security max-age. Zero disables
	// HSTS entirely.
	HSTSMaxAgeSecs        int
	HSTSIncludeSubdomains bool

	// FrameOptions is the X-Frame-Options value (DENY or SAMEORIGIN).
	FrameOptions string

	// ContentSecurityPolicy is sent verbatim as Content-Security-Policy.
	ContentSecurityPolicy string

	// ReferrerPolicy is the Referrer-Policy value.
	ReferrerPolicy string

	// ResourcePolicy is the Cross-Origin-Resource-Policy value.
	ResourcePolicy string
}

// APISecurityHeaders is the profile for the JSON API. Responses are data;
// anything that lets a browser treat them as a document is disabled.
func APISecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		HSTSMaxAgeSecs:        31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		ResourcePolicy:        "same-origin",
	}
}

// MediaPlaybackSecurityHeaders is the profile for the signed media route.
// Players load these URLs from video and audio elements, so the resource
// policy cannot be same-origin. The HMAC signature on the URL gates access,
// not the requesting origin.
func MediaPlaybackSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		HSTSMaxAgeSecs:        31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; media-src 'self'",
		ReferrerPolicy:        "no-referrer",
		ResourcePolicy:        "cross-origin",
	}
}

// SecurityHeadersMiddleware applies a header profile to every response
// passing through it. X-Content-Type-Options is always sent; playback
// clients must never sniff segment bytes into another type.
func SecurityHeadersMiddleware(h SecurityHeaders) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.HSTSMaxAgeSecs > 0 {
			v := "max-age=" + strconv.Itoa(h.HSTSMaxAgeSecs)
			if h.HSTSIncludeSubdomains {
				v += "; includeSubDomains"
			}
			c.Header("Strict-Transport-Security", v)
		}
		if h.FrameOptions != "" {
			c.Header("X-Frame-Options", h.FrameOptions)
		}
		c.Header("X-Content-Type-Options", "nosniff")
		if h.ContentSecurityPolicy != "" {
			c.Header("Content-Security-Policy", h.ContentSecurityPolicy)
		}
		if h.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", h.ReferrerPolicy)
		}
		if h.ResourcePolicy != "" {
			c.Header("Cross-Origin-Resource-Policy", h.ResourcePolicy)
		}
		c.Next()
	}
}
