// Package notifications holds the transient notices shown to a shopper after
// cart and checkout actions.
package notifications

import (
	"fmt"
	"time"

	"github.com/amaiabotanic/storefront/pkg/enums"
)

// Notice is one toast-style message.
type Notice struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Variant     enums.NotificationVariant `json:"variant"`
	CreatedAt   time.Time                 `json:"createdAt"`
}

func AddedToCart(productTitle string) Notice {
	return Notice{
		Title:       "Added to cart",
		Description: fmt.Sprintf("%s added to your ritual collection", productTitle),
		Variant:     enums.NotificationVariantDefault,
	}
}

func OrderConfirmed(orderID string) Notice {
	return Notice{
		Title:       "Order Confirmed!",
		Description: fmt.Sprintf("Thank you for your Amaïa ritual. Order #%s. You'll receive a confirmation email shortly.", orderID),
		Variant:     enums.NotificationVariantDefault,
	}
}

func PaymentFailed() Notice {
	return Notice{
		Title:       "Payment Failed",
		Description: "There was an error processing your payment. Please try again.",
		Variant:     enums.NotificationVariantDestructive,
	}
}
