package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	ua "github.com/mileusna/useragent"

	"github.com/inkbooth/inkbooth/internal/geoip"
	"github.com/inkbooth/inkbooth/internal/models"
)

// ClientInfo extracts the session creation context: OS and browser family,
// mobile flag, primary locale and geo location of the client IP. Geo lookup
// is best-effort; misses come back as "n.a.".
func ClientInfo(resolver geoip.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent := ua.Parse(c.Request.UserAgent())
		loc := geoipLookup(resolver, c.ClientIP())

		info := models.Session{
			Continent: loc.Continent,
			Country:   loc.Country,
			City:      loc.City,
			OS:        agent.OS,
			Browser:   agent.Name,
			IsMobile:  agent.Mobile || agent.Tablet,
			UserAgent: c.Request.UserAgent(),
			Language:  primaryLanguage(c.GetHeader("Accept-Language")),
		}
		c.Set(ClientInfoKey, info)
		c.Next()
	}
}

func geoipLookup(resolver geoip.Resolver, ip string) geoip.Location {
	if resolver == nil {
		return geoip.Location{Continent: geoip.Unknown, Country: geoip.Unknown, City: geoip.Unknown}
	}
	return resolver.Resolve(ip)
}

// primaryLanguage picks the first tag of an Accept-Language header,
// e.g. "de-AT,de;q=0.9,en;q=0.8" -> "de-AT".
func primaryLanguage(header string) string {
	if header == "" {
		return ""
	}
	first := header
	if idx := strings.IndexByte(first, ','); idx >= 0 {
		first = first[:idx]
	}
	if idx := strings.IndexByte(first, ';'); idx >= 0 {
		first = first[:idx]
	}
	return strings.TrimSpace(first)
}
