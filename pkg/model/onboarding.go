package model

import "time"

// Onboarding is one partner onboarding record owned by the backend.
type Onboarding struct {
	ClientID     string    `json:"client_id" mapstructure:"Client ID"`
	CompanyName  string    `json:"company_name" mapstructure:"Company"`
	Manufacturer string    `json:"manufacturer" mapstructure:"Manufacturer"`
	ContactEmail string    `json:"contact_email" mapstructure:"Contact Email"`
	Status       string    `json:"status" mapstructure:"Status"`
	CreatedAt    time.Time `json:"created_at" mapstructure:"Created At"`
	UpdatedAt    time.Time `json:"updated_at" mapstructure:"Updated At"`
}

// Note is a free-text comment left on an onboarding record.
type Note struct {
	ID        string    `json:"id" mapstructure:"Note ID"`
	ClientID  string    `json:"client_id" mapstructure:"Client ID"`
	Author    string    `json:"author" mapstructure:"Author"`
	Text      string    `json:"text" mapstructure:"Text"`
	CreatedAt time.Time `json:"created_at" mapstructure:"Created At"`
}

// IONOrder is an order pulled from the ION provisioning system.
type IONOrder struct {
	OrderID     string    `json:"order_id" mapstructure:"Order ID"`
	ClientID    string    `json:"client_id" mapstructure:"Client ID"`
	Product     string    `json:"product" mapstructure:"Product"`
	Quantity    int       `json:"quantity" mapstructure:"Quantity"`
	Status      string    `json:"status" mapstructure:"Status"`
	TotalAmount float64   `json:"total_amount" mapstructure:"Total"`
	Currency    string    `json:"currency" mapstructure:"Currency"`
	OrderedAt   time.Time `json:"ordered_at" mapstructure:"Ordered At"`
}

// IONSubscription is a subscription pulled from the ION provisioning system.
type IONSubscription struct {
	SubscriptionID string    `json:"subscription_id" mapstructure:"Subscription ID"`
	ClientID       string    `json:"client_id" mapstructure:"Client ID"`
	Product        string    `json:"product" mapstructure:"Product"`
	Seats          int       `json:"seats" mapstructure:"Seats"`
	Status         string    `json:"status" mapstructure:"Status"`
	BillingCycle   string    `json:"billing_cycle" mapstructure:"Billing Cycle"`
	RenewsAt       time.Time `json:"renews_at" mapstructure:"Renews At"`
}
