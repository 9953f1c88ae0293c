package models

import "strings"

type Coffee struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`

	// ObjectID is the document key when the record lives in MongoDB
	ObjectID string `json:"_id,omitempty"`
}

type CreateCoffeeRequest struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	APISecret   string `json:"api_secret,omitempty"`
}

// Validate trims the payload and reports whether a name was supplied
func (r *CreateCoffeeRequest) Validate() bool {
	r.Name = strings.TrimSpace(r.Name)
	r.Image = strings.TrimSpace(r.Image)
	r.Description = strings.TrimSpace(r.Description)
	return r.Name != ""
}

type UpdateCoffeeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	APISecret   string `json:"api_secret,omitempty"`
}

// HasChanges trims the payload and reports whether any updatable field is left
func (r *UpdateCoffeeRequest) HasChanges() bool {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	return r.Name != "" || r.Description != ""
}

// Apply copies the non-empty fields of req onto c
func (c *Coffee) Apply(req *UpdateCoffeeRequest) {
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Description != "" {
		c.Description = req.Description
	}
}
