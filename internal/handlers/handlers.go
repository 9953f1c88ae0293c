package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"coffeeapi/internal/database"
	"coffeeapi/internal/models"
)

// Config holds handler configuration options
type Config struct {
	// APISecret guards the mutating routes. Empty rejects every protected call.
	APISecret string
	// Banner is the plain-text body of GET /
	Banner string
}

type Handler struct {
	store  database.Store
	config Config
}

func NewHandler(store database.Store) *Handler {
	return &Handler{store: store}
}

// SetConfig sets the handler configuration
func (h *Handler) SetConfig(config Config) {
	h.config = config
}

// Home banner
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, h.config.Banner)
}

// List all coffees
func (h *Handler) HandleCoffeeList(w http.ResponseWriter, r *http.Request) {
	coffees, err := h.store.ListCoffees(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coffees)
}

// Get a coffee by id
func (h *Handler) HandleCoffeeGet(w http.ResponseWriter, r *http.Request) {
	coffee, err := h.store.GetCoffee(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coffee)
}

// Get a coffee by exact name, ignoring case
func (h *Handler) HandleCoffeeByName(w http.ResponseWriter, r *http.Request) {
	coffee, err := h.store.GetCoffeeByName(r.Context(), r.PathValue("name"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coffee)
}

// Search descriptions; an empty result is still 200
func (h *Handler) HandleCoffeeSearch(w http.ResponseWriter, r *http.Request) {
	coffees, err := h.store.SearchCoffees(r.Context(), r.PathValue("desc"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if coffees == nil {
		coffees = []*models.Coffee{}
	}
	writeJSON(w, http.StatusOK, coffees)
}

// Update name and/or description of a coffee
func (h *Handler) HandleCoffeeUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCoffeeRequest
	decodeErr, ok := readBody(w, r, &req)
	if !ok {
		return
	}

	if !h.authorized(r, req.APISecret) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.HasChanges() {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	coffee, err := h.store.UpdateCoffee(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coffee)
}

// Create a coffee
func (h *Handler) HandleCoffeeCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCoffeeRequest
	decodeErr, ok := readBody(w, r, &req)
	if !ok {
		return
	}

	if !h.authorized(r, req.APISecret) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Validate() {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	coffee, err := h.store.CreateCoffee(r.Context(), &req)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, coffee)
}

// Catch-all for unmatched routes
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// readBody reads the whole request body and decodes it into v.
// The decode error is returned rather than written so that authorization can
// run first. ok is false when a response has already been written.
func readBody(w http.ResponseWriter, r *http.Request, v any) (decodeErr error, ok bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if len(data) == 0 {
		return nil, true
	}
	return json.Unmarshal(data, v), true
}
