// Contact HTTP handler.
//
// This file exposes the public website contact form:
//   - POST /contact  (relay to the company inbox and confirm to the sender)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// ContactRequest is the JSON payload of the contact form. Field rules are
// enforced by the service so every client gets the same field errors.
type ContactRequest struct {
	FirstName string `json:"firstName" example:"Ann"`
	LastName  string `json:"lastName"  example:"Lee"`
	Email     string `json:"email"     example:"ann@example.com"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Service   string `json:"service"   example:"Freight"`
	Subject   string `json:"subject"   example:"Quote request"`
	Message   string `json:"message"   example:"Need a quote for 3 pallets"`
}

// SubmitContact godoc
// @ID          submitContact
// @Summary     Submit the contact form
// @Description Sends the submission to the company inbox and a confirmation to the submitter.
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ContactRequest  true  "Contact form"
//
// @Success     200  {object} handlers.SuccessResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Failed to send email"
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	err := h.contactSvc.Submit(c.Request.Context(), services.ContactInput(req))
	if err != nil {
		failErr(c, err)
		return
	}
	succeed(c, http.StatusOK, "Email sent successfully")
}
