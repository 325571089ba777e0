package gateway

import "fmt"

// Room identifiers are derived, never stored: any producer can address a
// scope without a registry lookup, and two producers always agree on the name.
func ChannelRoom(channelId uint) string {
	return fmt.Sprintf("channels:%d", channelId)
}

func ThreadRoom(threadId uint) string {
	return fmt.Sprintf("threads:%d", threadId)
}

func CallRoom(callId uint) string {
	return fmt.Sprintf("calls:%d", callId)
}

// AccountRoom addresses every live connection of one account.
func AccountRoom(accountId uint) string {
	return fmt.Sprintf("accounts:%d", accountId)
}
