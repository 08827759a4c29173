package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marcvidal/eventstock-backend/api/responses"
	"github.com/marcvidal/eventstock-backend/api/validators"
	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

func parsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func parseUUIDField(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}

type productCreateRequest struct {
	Code                string  `json:"code" validate:"required,min=2,max=32"`
	Name                string  `json:"name" validate:"required,min=2,max=160"`
	Category            string  `json:"category" validate:"required"`
	Type                string  `json:"type" validate:"required"`
	UnitPrice           string  `json:"unit_price" validate:"required"`
	InitialQty          int     `json:"initial_qty" validate:"omitempty,min=0"`
	CriticalThreshold   *int    `json:"critical_threshold,omitempty" validate:"omitempty,min=0"`
	MaintenanceRequired bool    `json:"maintenance_required"`
	Actor               string  `json:"actor" validate:"required,min=1,max=80"`
}

func (req productCreateRequest) toInput() (catalog.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(req.Category)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	productType, err := enums.ParseProductType(req.Type)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}
	if price.IsNegative() {
		return catalog.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	return catalog.CreateProductInput{
		Code:                validators.SanitizeString(req.Code, 32),
		Name:                validators.SanitizeString(req.Name, 160),
		Category:            category,
		Type:                productType,
		UnitPrice:           price,
		InitialQty:          req.InitialQty,
		CriticalThreshold:   req.CriticalThreshold,
		MaintenanceRequired: req.MaintenanceRequired,
		Actor:               validators.SanitizeString(req.Actor, 80),
	}, nil
}

func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type productUpdateRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=2,max=160"`
	Category            *string `json:"category,omitempty"`
	UnitPrice           *string `json:"unit_price,omitempty"`
	CriticalThreshold   *int    `json:"critical_threshold,omitempty" validate:"omitempty,min=0"`
	MaintenanceRequired *bool   `json:"maintenance_required,omitempty"`
}

func (req productUpdateRequest) toInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:                req.Name,
		CriticalThreshold:   req.CriticalThreshold,
		MaintenanceRequired: req.MaintenanceRequired,
	}
	if req.Category != nil {
		category, err := enums.ParseProductCategory(*req.Category)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if req.UnitPrice != nil {
		price, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
		}
		if price.IsNegative() {
			return catalog.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		input.UnitPrice = &price
	}
	return input, nil
}

func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductGetByCode(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product code is required"))
			return
		}

		product, err := svc.GetProductByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := catalog.ListParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			params.Category = &category
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			productType, err := enums.ParseProductType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type"))
				return
			}
			params.Type = &productType
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Params = page

		result, err := svc.ListProducts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProductListCritical(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListCriticalProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type adjustStockRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Motif string `json:"motif" validate:"required,min=2,max=240"`
	Actor string `json:"actor" validate:"required,min=1,max=80"`
}

func (req adjustStockRequest) toInput() catalog.AdjustStockInput {
	return catalog.AdjustStockInput{
		Delta: req.Delta,
		Motif: validators.SanitizeString(req.Motif, 240),
		Actor: validators.SanitizeString(req.Actor, 80),
	}
}

func ProductAdjustStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductRecomputeAvailability(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := svc.RecomputeAvailability(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"available_qty": available})
	}
}

func ProductMovements(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), ledger.HistoryParams{ProductID: id, Params: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProductMovementTotals(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from != nil && to != nil && to.Before(*from) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "to must not precede from"))
			return
		}

		totals, err := svc.Totals(r.Context(), ledger.TotalsParams{ProductID: id, From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, totals)
	}
}
