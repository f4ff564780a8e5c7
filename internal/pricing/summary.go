package pricing

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Customer is the buyer contact block printed at the top of a summary
type Customer struct {
	Name    string
	Phone   string
	Address string
}

// SummaryText renders the system message posted into a new chat room
func SummaryText(c Customer, q *Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", c.Name)
	fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	if q.DeliveryMethod.RequiresAddress() {
		fmt.Fprintf(&b, "Address: %s\n", c.Address)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", FormatAmount(q.Subtotal))
	fmt.Fprintf(&b, "Delivery: %s", q.DeliveryMethod.Label())
	if q.ShippingFee > 0 {
		fmt.Fprintf(&b, " (+%s)", FormatAmount(q.ShippingFee))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %s\n", FormatAmount(q.Total))
	b.WriteString("\n[Items]\n")
	for i, line := range q.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(LineLabel(line.Product.Name, optionName(line)))
		fmt.Fprintf(&b, " x%d (%s)", line.Quantity, FormatAmount(line.UnitPrice))
	}
	return strings.TrimSpace(b.String())
}

// LineLabel joins product and option names as "name - option"
func LineLabel(productName, optionName string) string {
	if optionName == "" {
		return productName
	}
	return productName + " - " + optionName
}

func optionName(line Line) string {
	if line.Option == nil {
		return ""
	}
	return line.Option.Name
}

// FormatAmount groups thousands with commas, e.g. 25800 -> "25,800"
func FormatAmount(v int64) string {
	return humanize.Comma(v)
}
