package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"possync/internal/app/client/config"
	"possync/internal/domain/catalog"
	"possync/internal/domain/sale"
	"possync/internal/offline/store"
	"possync/internal/offline/syncer"
)

const (
	pathHealth           = "/api/v1/health"
	pathTransactions     = "/api/v1/transactions"
	pathInventoryUpdates = "/api/v1/inventory-updates"
	pathProducts         = "/api/v1/products"
	pathCustomers        = "/api/v1/customers"
)

// ServerError - ответ сервера со статусом 4xx/5xx
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка сервера: статус %d", e.Status)
	}
	return fmt.Sprintf("ошибка сервера (%d): %s", e.Status, e.Message)
}

// Rejected - сервер отклонил саму запись. 5xx, авторизация и ограничение
// частоты запросов лечатся повтором, поэтому отказом не считаются.
func (e *ServerError) Rejected() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout,
		http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

// HTTPClient - транспорт к серверу: отправка очереди, справочники и проба связи
type HTTPClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &HTTPClient{
		client:    client,
		log:       log.With("component", "http_client"),
		baseURL:   cfg.BaseURL(),
		token:     cfg.APIToken,
		userAgent: "PosSync-Till/1.0",
	}
}

// HealthCheck проверяет доступность сервера, используется как проба связи
func (h *HTTPClient) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, pathHealth, nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

// Push отправляет запись очереди. Повтор записи с тем же ref сервер
// принимает как дубликат, это считается успехом.
func (h *HTTPClient) Push(ctx context.Context, item syncer.Item) error {
	var path string
	switch item.Collection {
	case store.Transactions:
		path = pathTransactions
	case store.InventoryUpdates:
		path = pathInventoryUpdates
	default:
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, item.Collection)
	}

	body := sale.PushRequest{
		Ref:        item.Ref,
		Payload:    item.Payload,
		RecordedAt: item.RecordedAt,
	}

	resp, err := h.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}

	var out sale.PushResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return err
	}

	if out.Duplicate {
		h.log.Debug("entry already accepted by server", "collection", item.Collection, "ref", item.Ref, "id", out.ID)
	}

	return nil
}

// ListProducts забирает каталог товаров для кэша
func (h *HTTPClient) ListProducts(ctx context.Context) ([]*store.Product, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, pathProducts, nil)
	if err != nil {
		return nil, err
	}

	var out catalog.ProductsResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	products := make([]*store.Product, 0, len(out.Products))
	for _, p := range out.Products {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга товара %s: %w", p.ID, err)
		}
		products = append(products, &store.Product{
			ID:      p.ID,
			Name:    p.Name,
			SKU:     p.SKU,
			Barcode: p.Barcode,
			Price:   p.Price,
			Stock:   p.Stock,
			Raw:     raw,
		})
	}

	return products, nil
}

// ListCustomers забирает справочник покупателей для кэша
func (h *HTTPClient) ListCustomers(ctx context.Context) ([]*store.Customer, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, pathCustomers, nil)
	if err != nil {
		return nil, err
	}

	var out catalog.CustomersResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	customers := make([]*store.Customer, 0, len(out.Customers))
	for _, c := range out.Customers {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга покупателя %s: %w", c.ID, err)
		}
		customers = append(customers, &store.Customer{
			ID:    c.ID,
			Name:  c.Name,
			Phone: c.Phone,
			Email: c.Email,
			Raw:   raw,
		})
	}

	return customers, nil
}

func (h *HTTPClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("сервер недоступен: %w", err)
	}

	return resp, nil
}

func (h *HTTPClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= 400 {
		// {"error": ...} от middleware или problem+json от huma
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		se := &ServerError{Status: resp.StatusCode}
		if err := json.Unmarshal(body, &errResp); err == nil {
			switch {
			case errResp.Error != "":
				se.Message = errResp.Error
			case errResp.Detail != "":
				se.Message = errResp.Detail
			default:
				se.Message = errResp.Title
			}
		}
		return se
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
