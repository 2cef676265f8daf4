package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
)

type calculatePayrollRequest struct {
	GrossPay decimal.Decimal            `json:"gross_pay"`
	PayDate  *time.Time                 `json:"pay_date"`
	Location locationRequest            `json:"location"`
	YTD      map[string]decimal.Decimal `json:"ytd_earnings"`
}

func (s *Server) CalculatePayroll(c *gin.Context) {
	var req calculatePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	in := payrolldomain.Input{
		GrossPay: req.GrossPay,
		Location: req.Location.toDomain(),
		YTD:      req.YTD,
	}
	if req.PayDate != nil {
		in.PayDate = *req.PayDate
	}

	breakdown, err := s.payrollSvc.Calculate(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}
