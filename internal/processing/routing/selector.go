package routing

import "strings"

// SelectDestination maps a visitor's country onto one destination URL.
// Matching is an exact two-letter lookup; anything else (nil country,
// unknown country, empty entry) falls back to the default destination.
// Total for any rule that passed Validate.
func SelectDestination(rule *RoutingRule, country *string) string {
	if country != nil {
		code := strings.ToUpper(strings.TrimSpace(*country))
		if dest, ok := rule.Destinations[code]; ok && dest != "" {
			return dest
		}
	}
	return rule.Destinations[DefaultDestination]
}
