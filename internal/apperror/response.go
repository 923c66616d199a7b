package apperror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Abort writes the JSON error body for err. Internal errors are not echoed
// to the client.
func Abort(c *gin.Context, err error) {
	status := HTTPStatus(err)
	body := gin.H{"error": err.Error(), "code": Code(err)}
	if status == http.StatusInternalServerError {
		body["error"] = "internal server error"
	}

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		body["product_id"] = stockErr.ProductID
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	}

	c.AbortWithStatusJSON(status, body)
}
