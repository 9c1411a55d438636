package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cryptoticket/rn-version-admin/internal/store"
)

// Users serves admin principal management. Every user carries an API token
// that gates bundle uploads.
type Users struct {
	users        *store.UserStore
	itemsPerPage int
	log          *zap.Logger
}

func NewUsers(users *store.UserStore, itemsPerPage int, log *zap.Logger) *Users {
	return &Users{users: users, itemsPerPage: itemsPerPage, log: log}
}

func (h *Users) mapStoreError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "User not found")
	case errors.Is(err, store.ErrDuplicate):
		return fiber.NewError(fiber.StatusBadRequest, "User with this email already exists")
	default:
		h.log.Error("user request failed", zap.String("path", c.Path()), zap.Error(err))
		return fiber.ErrInternalServerError
	}
}

type userRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Users) Create(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if msg, ok := validateStruct(req); !ok {
		return fiber.NewError(fiber.StatusBadRequest, msg)
	}
	user, err := h.users.Create(c.Context(), req.Email)
	if err != nil {
		return h.mapStoreError(c, err)
	}
	return c.JSON(user)
}

func (h *Users) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 0)
	if page < 0 {
		page = 0
	}
	users, total, err := h.users.List(c.Context(), page, h.itemsPerPage)
	if err != nil {
		return h.mapStoreError(c, err)
	}
	c.Set("X-Total-Count", strconv.FormatInt(total, 10))
	c.Set("X-Limit", strconv.Itoa(h.itemsPerPage))
	c.Set("X-Page", strconv.Itoa(page))
	c.Set("X-Last-Page", strconv.Itoa(store.LastPage(total, h.itemsPerPage)))
	return c.JSON(users)
}

func (h *Users) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "User not found")
	}
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if msg, ok := validateStruct(req); !ok {
		return fiber.NewError(fiber.StatusBadRequest, msg)
	}
	user, err := h.users.UpdateEmail(c.Context(), uint(id), req.Email)
	if err != nil {
		return h.mapStoreError(c, err)
	}
	return c.JSON(user)
}

func (h *Users) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "User not found")
	}
	if err := h.users.DeleteByID(c.Context(), uint(id)); err != nil {
		return h.mapStoreError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
