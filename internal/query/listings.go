package query

import "github.com/example/foodshare/internal/models"

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Listings is the query registry for food listings.
var Listings = NewRegistry("-createdAt",
	Field{Name: "id", Column: "id", BSON: "_id", Kind: KindID},
	Field{Name: "title", Column: "title", Kind: KindString},
	Field{Name: "description", Column: "description", Kind: KindString},
	Field{Name: "donor", Column: "donor_id", Kind: KindID},
	Field{Name: "category", Column: "category", Kind: KindEnum, Enum: enumValues(models.Categories)},
	Field{Name: "quantity", Column: "quantity", Kind: KindString},
	Field{Name: "expiryDate", Column: "expiry_date", Kind: KindTime},
	Field{Name: "availableFrom", Column: "available_from", Kind: KindTime},
	Field{Name: "availableUntil", Column: "available_until", Kind: KindTime},
	Field{Name: "status", Column: "status", Kind: KindEnum, Enum: enumValues(models.ListingStatuses)},
	Field{Name: "reservedBy", Column: "reserved_by_id", Kind: KindID},
	Field{Name: "claimedBy", Column: "claimed_by_id", Kind: KindID},
	Field{Name: "createdAt", Column: "created_at", Kind: KindTime},
	Field{Name: "updatedAt", Column: "updated_at", Kind: KindTime},
	Field{Name: "pickupAddress.city", Column: "pickup_city", Kind: KindString},
	Field{Name: "pickupAddress.state", Column: "pickup_state", Kind: KindString},
	Field{Name: "pickupAddress.zipCode", Column: "pickup_zip_code", Kind: KindString},
	Field{Name: "images"},
	Field{Name: "pickupAddress"},
	Field{Name: "specialInstructions"},
	Field{Name: "allergens"},
)
