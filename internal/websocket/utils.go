package websocket

import (
	"encoding/json"
	"fmt"

	wstypes "paysandbox-service/internal/domain/websocket"
)

// decodeChannels reads the channel list out of a subscribe or unsubscribe
// payload. Unknown channel names are rejected.
func decodeChannels(data interface{}) ([]wstypes.ChannelType, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var req wstypes.SubscribeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	for _, ch := range req.Channels {
		if !knownChannel(ch) {
			return nil, fmt.Errorf("unknown channel %q", ch)
		}
	}
	return req.Channels, nil
}

func knownChannel(ch wstypes.ChannelType) bool {
	for _, known := range wstypes.AllChannels {
		if ch == known {
			return true
		}
	}
	return false
}
