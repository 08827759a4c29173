package controllers

import (
	"net/http"
	"time"

	"github.com/marcvidal/eventstock-backend/api/responses"
	"github.com/marcvidal/eventstock-backend/api/validators"
	"github.com/marcvidal/eventstock-backend/internal/availability"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
	"github.com/marcvidal/eventstock-backend/pkg/types"
)

type availabilityCheckRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (req availabilityCheckRequest) toQuery() (availability.Query, error) {
	productID, err := parseUUIDField(req.ProductID, "product_id")
	if err != nil {
		return availability.Query{}, err
	}
	start, err := time.Parse(validators.DateLayout, req.StartDate)
	if err != nil {
		return availability.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start_date")
	}
	end, err := time.Parse(validators.DateLayout, req.EndDate)
	if err != nil {
		return availability.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end_date")
	}
	return availability.Query{
		ProductID: productID,
		Quantity:  req.Quantity,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func AvailabilityCheck(calc availability.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload availabilityCheckRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := payload.toQuery()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := calc.Check(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type availabilityBatchRequest struct {
	Queries []availabilityCheckRequest `json:"queries" validate:"required,min=1,max=50,dive"`
}

// batchCheckItem is one tuple's outcome. A tuple that failed validation
// carries the error envelope instead of a result.
type batchCheckItem struct {
	Result *availability.Result `json:"result,omitempty"`
	Error  *types.APIError      `json:"error,omitempty"`
}

func AvailabilityCheckBatch(calc availability.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload availabilityBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		queries := make([]availability.Query, 0, len(payload.Queries))
		parseErrs := make([]error, len(payload.Queries))
		for i, raw := range payload.Queries {
			query, err := raw.toQuery()
			if err != nil {
				parseErrs[i] = err
				queries = append(queries, availability.Query{})
				continue
			}
			queries = append(queries, query)
		}

		results := calc.CheckBatch(r.Context(), queries)

		items := make([]batchCheckItem, len(results))
		for i, res := range results {
			err := parseErrs[i]
			if err == nil {
				err = res.Err
			}
			if err != nil {
				items[i] = batchCheckItem{Error: toAPIError(err)}
				continue
			}
			items[i] = batchCheckItem{Result: res.Result}
		}

		responses.WriteSuccess(w, map[string]any{"results": items})
	}
}

func toAPIError(err error) *types.APIError {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	msg := typed.Message()
	if msg == "" {
		msg = meta.PublicMessage
	}
	apiErr := &types.APIError{Code: string(typed.Code()), Message: msg}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}
	return apiErr
}
