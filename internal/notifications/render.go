package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func confirmationSubject(order *models.Order) string {
	return fmt.Sprintf("Order Confirmation #%s", order.ID)
}

func confirmationBody(order *models.Order, user *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", user.DisplayName())
	b.WriteString("Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order #%s\n", order.ID)
	fmt.Fprintf(&b, "Status: %s\n\n", order.Status)
	b.WriteString("Items:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x %d = $%s\n", item.Product.Name, item.Quantity, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s\n\n", order.TotalAmount.StringFixed(2))
	b.WriteString("Shipping to:\n")
	b.WriteString(order.ShippingAddress)
	b.WriteString("\n")
	return b.String()
}

func alertText(order *models.Order, user *models.User) string {
	return fmt.Sprintf(":shopping_cart: New order #%s for $%s by %s", order.ID, order.TotalAmount.StringFixed(2), user.Username)
}
