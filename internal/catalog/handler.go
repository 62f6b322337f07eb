package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/catalog/internal/platform/httpx"
	"github.com/odyssey-erp/catalog/internal/settings"
)

// Lister produces listings for a validated request.
type Lister interface {
	List(ctx context.Context, req ListRequest) ([]Listing, error)
}

// Handler serves the product listing endpoint.
type Handler struct {
	logger    *slog.Logger
	service   Lister
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service Lister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return &Handler{logger: logger, service: service, validator: v}
}

// MountRoutes registers catalog routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/product-lists", h.listProducts)
}

type listQuery struct {
	AddressID    int64  `query:"address_id" validate:"required,gt=0"`
	CategoryCode string `query:"category_code" validate:"required,max=128"`
	Locale       string `query:"locale" validate:"omitempty,max=16"`
	DeliveryType string `query:"delivery_type" validate:"omitempty,oneof=pickup delivery"`
	OrderPrice   string `query:"filters[order][price]" validate:"omitempty,oneof=asc desc"`
	OrderName    string `query:"filters[order][name]" validate:"omitempty,oneof=asc desc"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseListRequest(r.URL.Query())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	listings, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondListError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listings)
}

func (h *Handler) respondListError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Category not found", "")
	case settings.IsConfigurationError(err):
		httpx.Problem(w, http.StatusBadRequest, "Branch setting empty", err.Error())
	case errors.Is(err, ErrAddressNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.ErrorContext(r.Context(), "list products", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) parseListRequest(values url.Values) (ListRequest, error) {
	q := listQuery{
		CategoryCode: strings.TrimSpace(values.Get("category_code")),
		Locale:       strings.TrimSpace(values.Get("locale")),
		DeliveryType: values.Get("delivery_type"),
		OrderPrice:   values.Get("filters[order][price]"),
		OrderName:    values.Get("filters[order][name]"),
	}
	if raw := values.Get("address_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListRequest{}, errors.New("address_id must be an integer")
		}
		q.AddressID = id
	}
	if err := h.validator.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return ListRequest{}, fmt.Errorf("%s is invalid", fieldErrs[0].Field())
		}
		return ListRequest{}, err
	}
	return ListRequest{
		AddressID:    q.AddressID,
		CategoryCode: q.CategoryCode,
		Locale:       q.Locale,
		DeliveryType: q.DeliveryType,
		InStock:      values.Get("in_stock") == "true",
		Filters:      attributeFilters(values),
		OrderPrice:   q.OrderPrice,
		OrderName:    q.OrderName,
	}, nil
}

// attributeFilters collects filters[<code>][] and filters[<code>][<n>] parameters.
func attributeFilters(values url.Values) map[string][]string {
	out := make(map[string][]string)
	for key, vals := range values {
		rest, ok := strings.CutPrefix(key, "filters[")
		if !ok {
			continue
		}
		code, _, ok := strings.Cut(rest, "]")
		if !ok || code == "" || code == "order" {
			continue
		}
		out[code] = append(out[code], vals...)
	}
	return out
}
