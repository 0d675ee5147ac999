package catalog

// Product - товар в каталоге сервера
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SKU     string `json:"sku"`
	Barcode string `json:"barcode,omitempty"`
	// Price в минимальных единицах валюты
	Price int64 `json:"price"`
	Stock int64 `json:"stock"`
}

// Customer - покупатель
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type ProductsResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type CustomersResponse struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
}

// Seed - начальное содержимое каталога (файл SEED_PATH)
type Seed struct {
	Products  []Product  `json:"products"`
	Customers []Customer `json:"customers"`
}
