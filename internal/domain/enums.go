package domain

import "strings"

// RequestStatus represents the status of a proxy request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

// Rows written before statuses were normalized carry these labels.
var (
	legacyPending  = map[string]bool{"대기": true}
	legacyAccepted = map[string]bool{"수락": true, "수락완료": true}
)

// IsValid checks if the status is one of the known statuses
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending,
		RequestStatusAccepted,
		RequestStatusRejected,
		RequestStatusCompleted:
		return true
	default:
		return false
	}
}

// IsPending reports whether the request still waits for the agent
func (s RequestStatus) IsPending() bool {
	return s == RequestStatusPending || legacyPending[strings.TrimSpace(string(s))]
}

// IsAccepted reports whether the agent took the request
func (s RequestStatus) IsAccepted() bool {
	return s == RequestStatusAccepted || legacyAccepted[strings.TrimSpace(string(s))]
}

// Normalize maps legacy labels onto the known statuses. Unknown text is kept as is.
func (s RequestStatus) Normalize() RequestStatus {
	switch {
	case s.IsPending():
		return RequestStatusPending
	case s.IsAccepted():
		return RequestStatusAccepted
	default:
		return s
	}
}

// CanTransitionTo checks if a status transition is valid
func (s RequestStatus) CanTransitionTo(newStatus RequestStatus) bool {
	switch s.Normalize() {
	case RequestStatusPending:
		return newStatus == RequestStatusAccepted ||
			newStatus == RequestStatusRejected
	case RequestStatusAccepted:
		return newStatus == RequestStatusCompleted
	default:
		return false // Terminal or unknown states
	}
}

// ProductStatus is the sale status of a product or option
type ProductStatus string

const (
	ProductStatusOnSale         ProductStatus = "on_sale"
	ProductStatusTemporarilyOut ProductStatus = "temporarily_out"
	ProductStatusSoldOut        ProductStatus = "sold_out"
)

// IsValid checks if the product status is valid
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusOnSale, ProductStatusTemporarilyOut, ProductStatusSoldOut:
		return true
	default:
		return false
	}
}

// DeliveryMethod is how an agent hands purchased goods to the buyer
type DeliveryMethod string

const (
	DeliveryInPerson       DeliveryMethod = "in_person"
	DeliveryCUEconomy      DeliveryMethod = "cu_economy"
	DeliveryGSHalfPrice    DeliveryMethod = "gs_half_price"
	DeliveryStandard       DeliveryMethod = "standard"
	DeliveryRegisteredMail DeliveryMethod = "registered_mail"
)

// shippingFees is the fee table in KRW
var shippingFees = map[DeliveryMethod]int64{
	DeliveryInPerson:       0,
	DeliveryCUEconomy:      1800,
	DeliveryGSHalfPrice:    2000,
	DeliveryStandard:       3500,
	DeliveryRegisteredMail: 2500,
}

// DeliveryMethods lists the methods in display order
func DeliveryMethods() []DeliveryMethod {
	return []DeliveryMethod{
		DeliveryInPerson,
		DeliveryCUEconomy,
		DeliveryGSHalfPrice,
		DeliveryStandard,
		DeliveryRegisteredMail,
	}
}

// IsValid checks if the delivery method is known
func (m DeliveryMethod) IsValid() bool {
	_, ok := shippingFees[m]
	return ok
}

// ShippingFee returns the fee for the method, 0 for unknown methods
func (m DeliveryMethod) ShippingFee() int64 {
	return shippingFees[m]
}

// RequiresAddress reports whether the buyer must give a delivery address
func (m DeliveryMethod) RequiresAddress() bool {
	return m != DeliveryInPerson
}

// Label returns the human readable name used in chat summaries
func (m DeliveryMethod) Label() string {
	switch m {
	case DeliveryInPerson:
		return "In-person"
	case DeliveryCUEconomy:
		return "CU economy parcel"
	case DeliveryGSHalfPrice:
		return "GS half-price parcel"
	case DeliveryStandard:
		return "Standard parcel"
	case DeliveryRegisteredMail:
		return "Quasi-registered mail"
	default:
		return string(m)
	}
}

// ETAOption is the agent's delivery estimate choice
type ETAOption string

const (
	ETASameDay     ETAOption = "same_day"
	ETAWithin1Day  ETAOption = "within_1_day"
	ETAWithin2Days ETAOption = "within_2_days"
	ETAOther       ETAOption = "other"
)

var etaPhrases = map[ETAOption]string{
	ETASameDay:     "Same day as purchase",
	ETAWithin1Day:  "Within 1 day of purchase",
	ETAWithin2Days: "Within 2 days of purchase",
}

// phrases saved by the first version of the form
var legacyETAPhrases = map[string]ETAOption{
	"구매 당일":      ETASameDay,
	"구매 후 1일 이내": ETAWithin1Day,
	"구매 후 2일 이내": ETAWithin2Days,
}

// ETAPhrase resolves an option to the stored phrase. Other uses the free text.
func ETAPhrase(option ETAOption, otherText string) string {
	if phrase, ok := etaPhrases[option]; ok {
		return phrase
	}
	return strings.TrimSpace(otherText)
}

// ParseETA infers the option back from a stored phrase
func ParseETA(phrase string) (ETAOption, string) {
	p := strings.TrimSpace(phrase)
	for option, known := range etaPhrases {
		if p == known {
			return option, ""
		}
	}
	if option, ok := legacyETAPhrases[p]; ok {
		return option, ""
	}
	return ETAOther, p
}
