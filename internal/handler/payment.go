package handler

import (
	"net/http"
	"time"

	"github.com/scoopworks/storefront/internal/domain/order"
	"github.com/scoopworks/storefront/internal/domain/payment"
)

type paymentRequest struct {
	Method        string `json:"method"`
	CardNumber    string `json:"card_number,omitempty"`
	Expiry        string `json:"expiry,omitempty"`
	CVV           string `json:"cvv,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`
	DeliveryNotes string `json:"delivery_notes,omitempty"`
}

type paymentResponse struct {
	OrderID          string `json:"order_id"`
	Method           string `json:"method"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	Instructions     string `json:"instructions"`
	Total            string `json:"total"`
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Method == "" {
		writeErrorMessage(w, http.StatusBadRequest, "method is required")
		return
	}

	res, err := h.payments.Process(r.Context(), r.PathValue("id"), order.Method(req.Method), payment.Data{
		CardNumber:    req.CardNumber,
		Expiry:        req.Expiry,
		CVV:           req.CVV,
		HolderName:    req.HolderName,
		DeliveryNotes: req.DeliveryNotes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		OrderID:          res.OrderID,
		Method:           string(res.Method),
		ConfirmationCode: res.ConfirmationCode,
		Instructions:     res.Instructions,
		Total:            res.Total.StringFixed(2),
	})
}

type paymentStatusResponse struct {
	OrderID       string     `json:"order_id"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Total         string     `json:"total"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func (h *Handler) getPaymentStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.payments.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		OrderID:       info.OrderID,
		Status:        string(info.Status),
		PaymentMethod: string(info.PaymentMethod),
		Total:         info.Total.StringFixed(2),
		CreatedAt:     info.CreatedAt,
		PaidAt:        info.PaidAt,
	})
}
