package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cryptoticket/rn-version-admin/internal/service"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

// Bundles serves the bundle CRUD and update-policy endpoints.
type Bundles struct {
	svc          *service.Bundles
	itemsPerPage int
	log          *zap.Logger
}

func NewBundles(svc *service.Bundles, itemsPerPage int, log *zap.Logger) *Bundles {
	return &Bundles{svc: svc, itemsPerPage: itemsPerPage, log: log}
}

// mapServiceError turns service/store sentinels into HTTP errors. Backend
// failures stay 500.
func (h *Bundles) mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "Bundle not found")
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		h.log.Error("bundle request failed", zap.String("path", c.Path()), zap.Error(err))
		return fiber.ErrInternalServerError
	}
}

// List returns one page of bundles ordered by version descending. Page
// metadata travels in response headers so the admin table can render
// pagination controls.
func (h *Bundles) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 0)
	if page < 0 {
		page = 0
	}
	bundles, info, err := h.svc.List(c.Context(), page, h.itemsPerPage)
	if err != nil {
		return h.mapServiceError(c, err)
	}
	c.Set("X-Total-Count", strconv.FormatInt(info.Total, 10))
	c.Set("X-Limit", strconv.Itoa(info.Size))
	c.Set("X-Page", strconv.Itoa(info.Number))
	c.Set("X-Last-Page", strconv.Itoa(info.LastPage))
	return c.JSON(bundles)
}

// Latest resolves the bundle a client should be on. An empty object means
// the platform has no bundles yet; that is not an error.
func (h *Bundles) Latest(c *fiber.Ctx) error {
	platform := c.Params("platform")
	bundle, err := h.svc.Latest(c.Context(), platform)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return fiber.NewError(fiber.StatusBadRequest, "params.platform should be equal to one of the allowed values")
		}
		return h.mapServiceError(c, err)
	}
	if bundle == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(bundle)
}

// Create handles the multipart bundle upload.
func (h *Bundles) Create(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Request is not multipart")
	}

	field := func(name string) (string, bool) {
		vals, ok := form.Value[name]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
	for _, name := range []string{"platform", "storage", "version", "is_update_required"} {
		if _, ok := field(name); !ok {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("body should have required property '%s'", name))
		}
	}
	platform, _ := field("platform")
	storageKind, _ := field("storage")
	version, _ := field("version")
	rawRequired, _ := field("is_update_required")
	isUpdateRequired, err := parseBool(rawRequired)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body.is_update_required should be boolean")
	}
	var desc *string
	if v, ok := field("desc"); ok {
		desc = &v
	}

	files, ok := form.File["bundle"]
	if !ok || len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "body should have required property 'bundle'")
	}
	src, err := files[0].Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "bundle file is not readable")
	}
	defer src.Close()

	bundle, err := h.svc.Create(c.Context(), service.CreateInput{
		Platform:         platform,
		Storage:          storageKind,
		Version:          version,
		IsUpdateRequired: isUpdateRequired,
		Desc:             desc,
		File:             src,
	})
	if err != nil {
		return h.mapServiceError(c, err)
	}
	return c.JSON(bundle)
}

type updateBundleRequest struct {
	IsUpdateRequired *bool   `json:"is_update_required" validate:"required"`
	ApplyFromVersion *string `json:"apply_from_version"`
	Desc             *string `json:"desc"`
}

// Update toggles the forced-update flag and its version range.
func (h *Bundles) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Bundle not found")
	}
	var req updateBundleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if msg, ok := validateStruct(req); !ok {
		return fiber.NewError(fiber.StatusBadRequest, msg)
	}
	bundle, err := h.svc.Update(c.Context(), uint(id), service.UpdateInput{
		IsUpdateRequired: *req.IsUpdateRequired,
		ApplyFromVersion: req.ApplyFromVersion,
		Desc:             req.Desc,
	})
	if err != nil {
		return h.mapServiceError(c, err)
	}
	return c.JSON(bundle)
}

// Delete removes the blob first, then the record.
func (h *Bundles) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Bundle not found")
	}
	if err := h.svc.Delete(c.Context(), uint(id)); err != nil {
		return h.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// parseBool accepts exactly the documented literal forms: true/false/1/0.
func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean literal: %q", s)
}
