package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/middleware"
	"github.com/example/foodshare/internal/services"
)

// ListingHandler manages food listing endpoints.
type ListingHandler struct {
	listings *services.ListingService
}

// NewListingHandler constructs ListingHandler.
func NewListingHandler(listings *services.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// ListListings returns a filtered, sorted page of listings.
func (h *ListingHandler) ListListings(c *fiber.Ctx) error {
	page, err := h.listings.List(c.UserContext(), c.Queries())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      page.Count,
		"total":      page.Total,
		"pagination": page.Pagination,
		"data":       page.Data,
	})
}

// Nearby returns available listings around lat/lng.
func (h *ListingHandler) Nearby(c *fiber.Ctx) error {
	lat, err := queryFloat(c, "lat", true)
	if err != nil {
		return err
	}
	lng, err := queryFloat(c, "lng", true)
	if err != nil {
		return err
	}
	radius, err := queryFloat(c, "radius", false)
	if err != nil {
		return err
	}

	listings, err := h.listings.Nearby(c.UserContext(), lat, lng, radius, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(listings), "data": listings})
}

// GetListing returns one listing.
func (h *ListingHandler) GetListing(c *fiber.Ctx) error {
	id, err := paramID(c, "food listing")
	if err != nil {
		return err
	}

	listing, err := h.listings.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": listing})
}

// CreateListing publishes a listing owned by the caller.
func (h *ListingHandler) CreateListing(c *fiber.Ctx, caller middleware.Identity) error {
	var req services.ListingPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}

	listing, err := h.listings.Create(c.UserContext(), caller.UserID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": listing})
}

// UpdateListing edits a listing owned by the caller.
func (h *ListingHandler) UpdateListing(c *fiber.Ctx, caller middleware.Identity) error {
	id, err := paramID(c, "food listing")
	if err != nil {
		return err
	}
	var req services.ListingPatch
	if err := parseBody(c, &req); err != nil {
		return err
	}

	listing, err := h.listings.Update(c.UserContext(), caller.UserID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": listing})
}

// DeleteListing removes a listing owned by the caller.
func (h *ListingHandler) DeleteListing(c *fiber.Ctx, caller middleware.Identity) error {
	id, err := paramID(c, "food listing")
	if err != nil {
		return err
	}

	if err := h.listings.Delete(c.UserContext(), caller.UserID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{}})
}

// ReserveListing reserves an available listing for the caller.
func (h *ListingHandler) ReserveListing(c *fiber.Ctx, caller middleware.Identity) error {
	id, err := paramID(c, "food listing")
	if err != nil {
		return err
	}

	listing, err := h.listings.Reserve(c.UserContext(), caller.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": listing})
}
