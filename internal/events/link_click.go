package events

// LinkClickType is the discriminator carried by every click message.
const LinkClickType = "LINK_CLICK"

// LinkClickMessage is the durable contract between the edge and the
// analytics consumer. Field names and nesting must stay stable: the
// downstream writer matches on them byte for byte.
type LinkClickMessage struct {
	Type string        `json:"type"`
	Data LinkClickData `json:"data"`
}

// LinkClickData carries one redirect. ID is the short code of the link
// that was clicked, not a per-event identifier.
type LinkClickData struct {
	ID          string   `json:"id"`
	Country     *string  `json:"country"`
	Destination string   `json:"destination"`
	AccountID   string   `json:"accountId"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timestamp   string   `json:"timestamp"`
}
