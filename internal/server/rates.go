package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListApplicableRates(c *gin.Context) {
	var query struct {
		CountryCode string `form:"country_code"`
		StateCode   string `form:"state_code"`
		CountyName  string `form:"county_name"`
		CityName    string `form:"city_name"`
		ZipCode     string `form:"zip_code"`
		AsOf        string `form:"as_of"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(query.CountryCode) == "" {
		AbortWithError(c, newValidationError("country_code", "missing_country_code", "country_code is required"))
		return
	}

	asOf := time.Time{}
	if raw := strings.TrimSpace(query.AsOf); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("as_of", "invalid_as_of", "as_of must be YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	loc := locationRequest{
		CountryCode: query.CountryCode,
		StateCode:   query.StateCode,
		CountyName:  query.CountyName,
		CityName:    query.CityName,
		ZipCode:     query.ZipCode,
	}.toDomain()

	rates, err := s.calcSvc.ApplicableRates(c.Request.Context(), loc, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}
