package controllers

import (
	"net/http"

	"github.com/marcvidal/eventstock-backend/api/responses"
	"github.com/marcvidal/eventstock-backend/api/validators"
	"github.com/marcvidal/eventstock-backend/internal/allocation"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type allocateRequest struct {
	ProductID string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Actor     string `json:"actor" validate:"required,min=1,max=80"`
}

func AllocationAllocate(engine allocation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parsePathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allocateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := allocation.AllocateInput{
			Quantity: payload.Quantity,
			LineID:   lineID,
			Actor:    validators.SanitizeString(payload.Actor, 80),
		}
		if payload.ProductID != "" {
			productID, err := parseUUIDField(payload.ProductID, "product_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.ProductID = productID
		}

		result, err := engine.Allocate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type actorRequest struct {
	Actor string `json:"actor" validate:"required,min=1,max=80"`
}

func AllocationRelease(engine allocation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parsePathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload actorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.Release(r.Context(), lineID, validators.SanitizeString(payload.Actor, 80)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

func AllocationReleaseInstance(engine allocation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceID, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload actorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.ReleaseInstance(r.Context(), instanceID, validators.SanitizeString(payload.Actor, 80)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

type resizeRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Actor    string `json:"actor" validate:"required,min=1,max=80"`
}

func AllocationResize(engine allocation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parsePathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.Resize(r.Context(), lineID, payload.Quantity, validators.SanitizeString(payload.Actor, 80))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
