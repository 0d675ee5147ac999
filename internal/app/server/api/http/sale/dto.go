package sale

import "possync/internal/domain/sale"

type pushInput struct {
	Body sale.PushRequest
}

type pushOutput struct {
	// 201 для новой записи, 200 для повтора
	Status int
	Body   sale.PushResponse
}

type statsOutput struct {
	Body statsResponse
}

type statsResponse struct {
	Transactions     int64 `json:"transactions" doc:"Accepted sales"`
	InventoryUpdates int64 `json:"inventory_updates" doc:"Accepted stock adjustments"`
}
