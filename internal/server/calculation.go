package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	calculationdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
)

type locationRequest struct {
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code"`
	CountyName  string `json:"county_name"`
	CityName    string `json:"city_name"`
	ZipCode     string `json:"zip_code"`
}

func (l locationRequest) toDomain() jurisdictiondomain.Location {
	return jurisdictiondomain.Location{
		CountryCode: strings.TrimSpace(l.CountryCode),
		StateCode:   strings.TrimSpace(l.StateCode),
		CountyName:  strings.TrimSpace(l.CountyName),
		CityName:    strings.TrimSpace(l.CityName),
		ZipCode:     strings.TrimSpace(l.ZipCode),
	}
}

type lineItemRequest struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    decimal.Decimal `json:"quantity"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	IsExempt    bool            `json:"is_exempt"`
}

type calculateTaxRequest struct {
	Location        locationRequest   `json:"location"`
	TransactionDate *time.Time        `json:"transaction_date"`
	Lines           []lineItemRequest `json:"lines"`
	ShippingAmount  decimal.Decimal   `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal   `json:"discount_amount"`
	CustomerID      *string           `json:"customer_id"`
	CertificateID   *string           `json:"certificate_id"`
}

func (s *Server) CalculateTax(c *gin.Context) {
	var req calculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := parseOptionalID(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "invalid customer_id"))
		return
	}
	certificateID, err := parseOptionalID(req.CertificateID)
	if err != nil {
		AbortWithError(c, newValidationError("certificate_id", "invalid_certificate_id", "invalid certificate_id"))
		return
	}

	domainReq := calculationdomain.Request{
		Location:       req.Location.toDomain(),
		ShippingAmount: req.ShippingAmount,
		DiscountAmount: req.DiscountAmount,
		CustomerID:     customerID,
		CertificateID:  certificateID,
	}
	if req.TransactionDate != nil {
		domainReq.TransactionDate = *req.TransactionDate
	}
	for _, line := range req.Lines {
		domainReq.Lines = append(domainReq.Lines, calculationdomain.LineItem{
			ID:          strings.TrimSpace(line.ID),
			Amount:      line.Amount,
			Quantity:    line.Quantity,
			Category:    strings.TrimSpace(line.Category),
			Description: strings.TrimSpace(line.Description),
			IsExempt:    line.IsExempt,
		})
	}

	resp, err := s.calcSvc.Calculate(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseOptionalID(raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}
