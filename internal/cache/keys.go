package cache

// Key for the admin onboarding list.
const KeyOnboardings = "onboardings"

// ClientPrefix returns the prefix shared by every entry of clientID.
func ClientPrefix(clientID string) string {
	return "client:" + clientID + ":"
}

// KeyIONOrders returns the key for clientID's ION orders.
func KeyIONOrders(clientID string) string {
	return ClientPrefix(clientID) + "ion_orders"
}

// KeyIONSubscriptions returns the key for clientID's ION subscriptions.
func KeyIONSubscriptions(clientID string) string {
	return ClientPrefix(clientID) + "ion_subscriptions"
}
