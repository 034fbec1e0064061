package domain

// Inbound command names.
const (
	EventJoinChannel    = "join_channel"
	EventLeaveChannel   = "leave_channel"
	EventShowLowerThird = "show_lower_third"
	EventHideLowerThird = "hide_lower_third"
	EventKillLowerThird = "kill_lower_third"
)

// Outbound event names. show/hide/kill reuse the command names above.
const (
	EventChannelsData  = "channels_data"
	EventChannelStatus = "channel_status"
	EventReloadClient  = "reload_client"
)
