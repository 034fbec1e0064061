package domain

// LowerThird is one piece of on-screen graphic content. It is a value:
// every show builds a new one and nothing mutates it afterwards.
type LowerThird struct {
	Design   string   `json:"design"`
	Title    string   `json:"title"`
	Subtitle *string  `json:"subtitle"`
	Duration *float64 `json:"duration"` // seconds; nil means until hidden
}

// ShowEvent is the payload of show_lower_third.
type ShowEvent struct {
	Channel string `json:"channel"`
	LowerThird
}

// ChannelEvent is the payload of hide_lower_third and kill_lower_third.
type ChannelEvent struct {
	Channel string `json:"channel"`
}
