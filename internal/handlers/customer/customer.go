// internal/handlers/customer/customer_handler.go
package customer

import (
	"net/http"

	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService *service.CustomerService
}

func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// GetCustomerByEmail returns payment aggregates for ?email=
func (h *CustomerHandler) GetCustomerByEmail(c *gin.Context) {
	workspaceID := middleware.MustGetWorkspaceID(c)

	result, err := h.customerService.GetCustomerByEmail(c.Request.Context(), workspaceID, c.Query("email"))
	if err != nil {
		response.FromError(c, "failed to get customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}
