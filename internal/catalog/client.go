// Package catalog - HTTP-клиент каталога товаров.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/spinner"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNotFound - каталог не знает такого товара.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrUnavailable - каталог ответил ошибкой сервера.
	ErrUnavailable = errors.New("catalog: service unavailable")
)

// Client читает товары из каталога.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Entry
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient задаёт собственный http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// WithSpinner показывает индикатор загрузки на время каждого запроса.
// Клиент, переданный через WithHTTPClient, не меняется: оборачивается его копия.
func WithSpinner(s *spinner.Service) Option {
	return func(client *Client) {
		wrapped := *client.http
		wrapped.Transport = spinner.NewTransport(s, wrapped.Transport)
		client.http = &wrapped
	}
}

// New создаёт клиента для каталога по адресу baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  log.WithField("component", "catalog-client"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Get возвращает товар по идентификатору.
func (c *Client) Get(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	if id.IsZero() {
		return domain.Product{}, domain.ErrInvalidProductID
	}

	var product domain.Product
	if err := c.getJSON(ctx, "/products/"+id.String(), &product); err != nil {
		return domain.Product{}, err
	}
	if product.ID.IsZero() {
		product.ID = id
	}
	product.Quantity = 0
	return product, nil
}

// List возвращает все товары каталога.
func (c *Client) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.WithFields(log.Fields{"path": path, "status": resp.StatusCode}).Warn("catalog returned server error")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog request %s: unexpected status %d", path, resp.StatusCode)
	}

	// каталог отвечает 200 с пустым телом на неизвестный id
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return ErrNotFound
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
