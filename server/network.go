package server

import (
	"log"
	"time"

	ping "github.com/prometheus-community/pro-bing"

	"github.com/AJFrio/NodeNav-sub000/utils"
)

// RunConnectivityChecker pings host once a second and broadcasts
// network_status transitions over the hub. Several consecutive failures are
// required before reporting offline so a single dropped packet does not flap
// the UI.
func RunConnectivityChecker(hub *utils.WebSocketHub, host string, stop <-chan struct{}) {
	const (
		interval      = 1 * time.Second
		failThreshold = 3
	)

	broadcast := func(status string) {
		hub.Broadcast(utils.WebSocketEvent{
			Type:    "network_status",
			Payload: utils.NetworkStatusPayload{Status: status},
		})
	}

	isOnline := false
	failCount := 0
	broadcast("offline")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ok := pingOnce(host)
		if ok {
			failCount = 0
			if !isOnline {
				isOnline = true
				broadcast("online")
			}
			continue
		}

		failCount++
		if failCount >= failThreshold && isOnline {
			isOnline = false
			broadcast("offline")
		}
	}
}

func pingOnce(host string) bool {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		log.Printf("NET: failed to create pinger: %v", err)
		return false
	}
	pinger.Count = 1
	pinger.Timeout = 1 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
