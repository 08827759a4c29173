package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcvidal/eventstock-backend/api/responses"
	"github.com/marcvidal/eventstock-backend/api/validators"
	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type instanceRegisterRequest struct {
	ProductID  string  `json:"product_id" validate:"required,uuid"`
	Count      int     `json:"count" validate:"required,min=1,max=500"`
	Condition  string  `json:"condition,omitempty"`
	AcquiredOn *string `json:"acquired_on,omitempty"`
	Actor      string  `json:"actor" validate:"required,min=1,max=80"`
}

func (req instanceRegisterRequest) toInput() (registry.RegisterInput, error) {
	productID, err := parseUUIDField(req.ProductID, "product_id")
	if err != nil {
		return registry.RegisterInput{}, err
	}

	input := registry.RegisterInput{
		ProductID: productID,
		Count:     req.Count,
		Condition: enums.InstanceConditionGood,
		Actor:     validators.SanitizeString(req.Actor, 80),
	}
	if req.Condition != "" {
		condition, err := enums.ParseInstanceCondition(req.Condition)
		if err != nil {
			return registry.RegisterInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		input.Condition = condition
	}
	if req.AcquiredOn != nil {
		acquired, err := time.Parse(validators.DateLayout, *req.AcquiredOn)
		if err != nil {
			return registry.RegisterInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid acquired_on date")
		}
		input.AcquiredOn = &acquired
	}
	return input, nil
}

func InstanceRegister(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload instanceRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		instances, err := svc.RegisterInstances(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"instances": instances})
	}
}

func InstanceGet(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		instance, err := svc.GetInstance(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, instance)
	}
}

func InstanceGetBySerial(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := strings.TrimSpace(chi.URLParam(r, "serial"))
		if serial == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "serial is required"))
			return
		}

		instance, err := svc.GetInstanceBySerial(r.Context(), serial)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, instance)
	}
}

func InstanceList(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := registry.ListParams{ProductID: productID}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseInstanceStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Params = page

		result, err := svc.ListInstances(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type instanceChangeStatusRequest struct {
	To          string  `json:"to" validate:"required"`
	Motif       string  `json:"motif,omitempty" validate:"omitempty,max=240"`
	Actor       string  `json:"actor" validate:"required,min=1,max=80"`
	Condition   *string `json:"condition,omitempty"`
	Observation *string `json:"observation,omitempty" validate:"omitempty,max=500"`
}

func (req instanceChangeStatusRequest) toInput() (registry.ChangeStatusInput, error) {
	to, err := enums.ParseInstanceStatus(req.To)
	if err != nil {
		return registry.ChangeStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status")
	}

	input := registry.ChangeStatusInput{
		To:          to,
		Motif:       validators.SanitizeString(req.Motif, 240),
		Actor:       validators.SanitizeString(req.Actor, 80),
		Observation: req.Observation,
	}
	if req.Condition != nil {
		condition, err := enums.ParseInstanceCondition(*req.Condition)
		if err != nil {
			return registry.ChangeStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		input.Condition = &condition
	}
	return input, nil
}

func InstanceChangeStatus(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload instanceChangeStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		instance, err := svc.ChangeStatus(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, instance)
	}
}

type instanceMaintenanceRequest struct {
	Motif             string  `json:"motif" validate:"required,min=2,max=240"`
	Actor             string  `json:"actor" validate:"required,min=1,max=80"`
	Condition         *string `json:"condition,omitempty"`
	NextMaintenanceAt *string `json:"next_maintenance_at,omitempty"`
}

func (req instanceMaintenanceRequest) toInput() (registry.MaintenanceInput, error) {
	input := registry.MaintenanceInput{
		Motif: validators.SanitizeString(req.Motif, 240),
		Actor: validators.SanitizeString(req.Actor, 80),
	}
	if req.Condition != nil {
		condition, err := enums.ParseInstanceCondition(*req.Condition)
		if err != nil {
			return registry.MaintenanceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		input.Condition = &condition
	}
	if req.NextMaintenanceAt != nil {
		next, err := time.Parse(validators.DateLayout, *req.NextMaintenanceAt)
		if err != nil {
			return registry.MaintenanceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid next_maintenance_at date")
		}
		input.NextMaintenanceAt = &next
	}
	return input, nil
}

func InstanceSendToMaintenance(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload instanceMaintenanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		instance, err := svc.SendToMaintenance(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, instance)
	}
}

func InstanceReturnFromMaintenance(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload instanceMaintenanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		instance, err := svc.ReturnFromMaintenance(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, instance)
	}
}

func InstanceDelete(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := validators.SanitizeString(r.URL.Query().Get("actor"), 80)
		if actor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "actor is required"))
			return
		}

		if err := svc.DeleteInstance(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
