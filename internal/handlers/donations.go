package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/middleware"
	"github.com/example/foodshare/internal/services"
)

// DonationHandler manages donation endpoints.
type DonationHandler struct {
	donations *services.DonationService
}

// NewDonationHandler constructs DonationHandler.
func NewDonationHandler(donations *services.DonationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// ListDonations returns the caller's donations as donor or recipient.
func (h *DonationHandler) ListDonations(c *fiber.Ctx, caller middleware.Identity) error {
	donations, err := h.donations.ListMine(c.UserContext(), caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(donations), "data": donations})
}

// CreateDonation requests a listing for the caller.
func (h *DonationHandler) CreateDonation(c *fiber.Ctx, caller middleware.Identity) error {
	var req services.DonationInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	donation, err := h.donations.Create(c.UserContext(), caller.UserID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": donation})
}

// UpdateStatus moves a donation along its lifecycle.
func (h *DonationHandler) UpdateStatus(c *fiber.Ctx, caller middleware.Identity) error {
	id, err := paramID(c, "donation")
	if err != nil {
		return err
	}
	var req services.StatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	donation, err := h.donations.UpdateStatus(c.UserContext(), caller.UserID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": donation})
}

// RateDonation records the caller's rating of a completed donation.
func (h *DonationHandler) RateDonation(c *fiber.Ctx, caller middleware.Identity) error {
	id, err := paramID(c, "donation")
	if err != nil {
		return err
	}
	var req services.RateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	donation, err := h.donations.Rate(c.UserContext(), caller.UserID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": donation})
}
