package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/evidence"
	"github.com/example/storefront/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	catalogSvc   *catalog.Service
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, catalogSvc *catalog.Service) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		catalogSvc:   catalogSvc,
	}
}

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       int    `json:"price"`
		Image       string `json:"image"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.catalogSvc.CreateProduct(r.Context(), req.Name, req.Description, req.Image, req.Category, req.Price)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	product, err := h.queryHandler.GetProduct(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// UpdateProduct is the admin endpoint for editing a catalog entry.
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       int    `json:"price"`
		Image       string `json:"image"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	product, err := h.queryHandler.GetProduct(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Image = req.Image
	product.Category = req.Category

	if err := h.catalogSvc.UpdateProduct(r.Context(), product); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Cart Handlers

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.catalogSvc.AddToCart(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := extractPathParam(r.URL.Path, "/cart/items/")
	if err := h.catalogSvc.RemoveFromCart(r.Context(), userID, productID); err != nil {
		respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	lines, err := h.queryHandler.GetCart(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.Filter{Email: q.Get("email")}
	if s := q.Get("status"); s != "" {
		status, err := order.ParseStatus(s)
		if err != nil {
			respondErr(w, err)
			return
		}
		f.Status = status
	}
	if s := q.Get("payment_status"); s != "" {
		payment, err := order.ParsePaymentStatus(s)
		if err != nil {
			respondErr(w, err)
			return
		}
		f.PaymentStatus = payment
	}

	// Non-admins only see their own orders.
	if !isAdmin(r) {
		claims, ok := middleware.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.Email = claims.Email
	}

	orders, err := h.queryHandler.ListOrders(r.Context(), f)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := orderNumberFromPath(r.URL.Path)
	o, err := h.queryHandler.GetOrder(r.Context(), number)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	number := orderNumberFromPath(r.URL.Path)
	o, err := h.cmdHandler.CancelOrder(r.Context(), command.CancelOrder{OrderNumber: number})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// TransitionStatus is the admin endpoint for fulfillment changes.
func (h *Handlers) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	number := orderNumberFromPath(r.URL.Path)

	var cmd command.TransitionStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.OrderNumber = number

	o, err := h.cmdHandler.TransitionStatus(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// TransitionPayment is the admin endpoint for payment review.
func (h *Handlers) TransitionPayment(w http.ResponseWriter, r *http.Request) {
	number := orderNumberFromPath(r.URL.Path)

	var cmd command.TransitionPayment
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.OrderNumber = number

	o, err := h.cmdHandler.TransitionPayment(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// SubmitPaymentEvidence accepts a multipart payment-proof upload.
func (h *Handlers) SubmitPaymentEvidence(w http.ResponseWriter, r *http.Request) {
	number := orderNumberFromPath(r.URL.Path)

	r.Body = http.MaxBytesReader(w, r.Body, evidence.MaxImageBytes+4096)
	if err := r.ParseMultipartForm(evidence.MaxImageBytes); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		http.Error(w, "screenshot file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := command.SubmitPaymentEvidence{
		OrderNumber:    number,
		Image:          data,
		ContentType:    header.Header.Get("Content-Type"),
		DeclaredMethod: r.FormValue("method"),
	}
	o, err := h.cmdHandler.SubmitPaymentEvidence(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForError(err))
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// orderNumberFromPath pulls the order number out of /orders/{number}
// and /orders/{number}/{action} paths.
func orderNumberFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/orders/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// isAdmin checks if the current user has admin role.
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == "admin"
}
