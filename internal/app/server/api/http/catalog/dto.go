package catalog

import "possync/internal/domain/catalog"

type productsOutput struct {
	Body catalog.ProductsResponse
}

type customersOutput struct {
	Body catalog.CustomersResponse
}
