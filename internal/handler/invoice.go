package handler

import (
	"net/http"
	"time"

	"github.com/scoopworks/storefront/internal/domain/invoice"
)

type invoiceRequest struct {
	TaxID      string `json:"tax_id,omitempty"`
	LegalName  string `json:"legal_name,omitempty"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type invoiceResponse struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Number        string    `json:"number"`
	TaxID         string    `json:"tax_id"`
	LegalName     string    `json:"legal_name"`
	FiscalAddress string    `json:"fiscal_address"`
	Subtotal      string    `json:"subtotal"`
	Tax           string    `json:"tax"`
	Total         string    `json:"total"`
	IssuedAt      time.Time `json:"issued_at"`
}

func toInvoiceResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		OrderID:       inv.OrderID,
		Number:        inv.Number,
		TaxID:         inv.TaxID,
		LegalName:     inv.LegalName,
		FiscalAddress: inv.FiscalAddress,
		Subtotal:      inv.Subtotal.StringFixed(2),
		Tax:           inv.Tax.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		IssuedAt:      inv.IssuedAt,
	}
}

func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inv, err := h.invoices.Generate(r.Context(), r.PathValue("id"), invoice.FiscalData{
		TaxID:      req.TaxID,
		LegalName:  req.LegalName,
		Street:     req.Street,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) getInvoiceByOrder(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.ByOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) getInvoiceByNumber(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.ByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	all, err := h.invoices.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]invoiceResponse, len(all))
	for i := range all {
		out[i] = toInvoiceResponse(&all[i])
	}
	writeJSON(w, http.StatusOK, out)
}
