package domain

import "github.com/google/uuid"

// TermRow is one headcount/fee line in an agent's terms editor.
// OptionID is nil for a product level row.
type TermRow struct {
	OptionID  *uuid.UUID `json:"option_id"`
	Headcount int        `json:"headcount"`
	Fee       int64      `json:"fee"`
}

// TermsByProduct maps a product to its term rows
type TermsByProduct map[uuid.UUID][]TermRow

// Selection is the buyer's choice for one product in the delegate workflow
type Selection struct {
	ProductID uuid.UUID  `json:"product_id"`
	OptionID  *uuid.UUID `json:"option_id"`
	Quantity  int        `json:"quantity"`
}
