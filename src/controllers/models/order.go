package models

import (
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
)

type OrderItemRequest struct {
	ProductID string `json:"productId" example:"p-atta-5kg"`
	Quantity  int    `json:"quantity" example:"2"`
}

type DeliveryAddressRequest struct {
	Name    string `json:"name" example:"Asha Verma"`
	Phone   string `json:"phone" example:"9876543210"`
	Address string `json:"address" example:"12 MG Road"`
	Pincode string `json:"pincode,omitempty" example:"560001"`
	City    string `json:"city,omitempty" example:"Bengaluru"`
	State   string `json:"state,omitempty" example:"Karnataka"`
	Type    string `json:"type,omitempty" example:"home"`
}

type OrderRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	DeliveryAddress DeliveryAddressRequest `json:"deliveryAddress"`
	PaymentMethod   string                 `json:"paymentMethod,omitempty" example:"cod"`
	OrderNotes      string                 `json:"orderNotes,omitempty"`
}

// ToInput builds the service input for userID. The user never comes from
// the body.
func (r OrderRequest) ToInput(userID string) domain.CreateOrderInput {
	items := make([]domain.ItemRequest, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return domain.CreateOrderInput{
		UserID:          userID,
		Items:           items,
		DeliveryAddress: domain.DeliveryAddress(r.DeliveryAddress),
		PaymentMethod:   r.PaymentMethod,
		OrderNotes:      r.OrderNotes,
	}
}

type StatusUpdateRequest struct {
	Status        string `json:"status" example:"confirmed"`
	Notes         string `json:"notes,omitempty"`
	DeliveryBoy   string `json:"deliveryBoy,omitempty"`
	DeliveryPhone string `json:"deliveryPhone,omitempty"`
}

func (r StatusUpdateRequest) ToChange() domain.StatusChange {
	return domain.StatusChange(r)
}

type CancelRequest struct {
	Reason string `json:"reason" example:"ordered by mistake"`
}

type ProductRequest struct {
	ID       string  `json:"id" example:"p-atta-5kg"`
	Name     string  `json:"name" example:"Aashirvaad Atta 5kg"`
	Category string  `json:"category,omitempty" example:"staples"`
	Price    float64 `json:"price" example:"245"`
	Stock    int     `json:"stock" example:"40"`
}

func (r ProductRequest) ToProduct() inventory.Product {
	return inventory.Product{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Price:    r.Price,
		Stock:    r.Stock,
		IsActive: true,
	}
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	ProductID     string `json:"productId,omitempty"`
	Requested     int    `json:"requested,omitempty"`
	Available     *int   `json:"available,omitempty"`
	CurrentStatus string `json:"currentStatus,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
