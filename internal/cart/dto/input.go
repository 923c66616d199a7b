package dto

type AddItemInput struct {
	UserID    string
	ProductID string
	Quantity  int
}

type UpdateItemInput struct {
	UserID    string
	ProductID string
	Quantity  int
}

type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}
