package dto

import "github.com/fekuna/omnipos-storefront-service/internal/model"

type OrderFilters struct {
	UserID   string
	Status   model.OrderStatus
	Page     int
	PageSize int
}

type UpdateStatusInput struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type AddressInput struct {
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	IsDefault    bool   `json:"is_default"`
}

type OrderStatusChangedEvent struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	OrderID   string            `json:"order_id"`
	UserID    string            `json:"user_id"`
	From      model.OrderStatus `json:"from"`
	To        model.OrderStatus `json:"to"`
	ChangedBy string            `json:"changed_by"`
}
