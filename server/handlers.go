package server

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vishvananda/netlink"

	"github.com/AJFrio/NodeNav-sub000/bluetooth"
	"github.com/AJFrio/NodeNav-sub000/lights"
	"github.com/AJFrio/NodeNav-sub000/utils"
)

type InfoResponse struct {
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// statusForError maps the bluetooth error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var (
		notFound  *bluetooth.DeviceNotFoundError
		scanning  *bluetooth.AlreadyScanningError
		noPlayer  *bluetooth.NoActivePlayerError
		noAdapter *bluetooth.AdapterNotFoundError
		pairFail  *bluetooth.PairingFailedError
		connFail  *bluetooth.ConnectionFailedError
		mediaFail *bluetooth.MediaControlFailedError
		transport *bluetooth.TransportError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &scanning), errors.As(err, &noPlayer):
		return http.StatusConflict
	case errors.As(err, &noAdapter):
		return http.StatusServiceUnavailable
	case errors.As(err, &pairFail), errors.As(err, &connFail), errors.As(err, &mediaFail), errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(statusForError(err))
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func methodGuard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Method not allowed"})
			return
		}
		next(w, r)
	}
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/info", corsMiddleware(methodGuard("GET", s.handleInfo)))

	s.router.HandleFunc("/bluetooth/adapter", corsMiddleware(methodGuard("GET", s.handleAdapterInfo)))
	s.router.HandleFunc("/bluetooth/devices", corsMiddleware(methodGuard("GET", s.handleDevices)))
	s.router.HandleFunc("/bluetooth/scan/start", corsMiddleware(methodGuard("POST", s.handleScanStart)))
	s.router.HandleFunc("/bluetooth/scan/stop", corsMiddleware(methodGuard("POST", s.handleScanStop)))
	s.router.HandleFunc("/bluetooth/pair/", corsMiddleware(methodGuard("POST", s.deviceVerb("/bluetooth/pair/", s.btManager.PairDevice))))
	s.router.HandleFunc("/bluetooth/connect/", corsMiddleware(methodGuard("POST", s.deviceVerb("/bluetooth/connect/", s.btManager.ConnectDevice))))
	s.router.HandleFunc("/bluetooth/disconnect/", corsMiddleware(methodGuard("POST", s.deviceVerb("/bluetooth/disconnect/", s.btManager.DisconnectDevice))))
	s.router.HandleFunc("/bluetooth/remove/", corsMiddleware(methodGuard("POST", s.deviceVerb("/bluetooth/remove/", s.btManager.UnpairDevice))))
	s.router.HandleFunc("/bluetooth/network", corsMiddleware(methodGuard("GET", s.handleNetworkStatus)))

	s.router.HandleFunc("/media/state", corsMiddleware(methodGuard("GET", s.handleMediaState)))
	s.router.HandleFunc("/media/", corsMiddleware(methodGuard("POST", s.handleMediaControl)))

	s.router.HandleFunc("/lights", corsMiddleware(methodGuard("GET", s.handleLights)))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	version := "dev"
	if content, err := os.ReadFile("/etc/nodenav/version.txt"); err == nil {
		version = strings.TrimSpace(string(content))
	}
	json.NewEncoder(w).Encode(InfoResponse{Version: version})
}

func (s *Server) handleAdapterInfo(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.btManager.GetAdapterInfo())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.btManager.GetDevices()
	if devices == nil {
		devices = []utils.BluetoothDeviceInfo{}
	}
	json.NewEncoder(w).Encode(devices)
}

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	if err := s.btManager.StartScanning(); err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(StatusResponse{Status: "scanning"})
}

func (s *Server) handleScanStop(w http.ResponseWriter, r *http.Request) {
	if err := s.btManager.StopScanning(); err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(StatusResponse{Status: "stopped"})
}

// deviceVerb adapts a manager verb taking a device address into a handler.
func (s *Server) deviceVerb(prefix string, verb func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimPrefix(r.URL.Path, prefix)
		if address == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Bluetooth address is required"})
			return
		}
		if err := verb(address); err != nil {
			writeError(w, err)
			return
		}
		json.NewEncoder(w).Encode(StatusResponse{Status: "success"})
	}
}

func (s *Server) handleMediaState(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.btManager.GetMediaState())
}

func (s *Server) handleMediaControl(w http.ResponseWriter, r *http.Request) {
	command := strings.TrimPrefix(r.URL.Path, "/media/")
	switch command {
	case "play", "pause", "stop", "next", "previous":
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Unknown media command: " + command})
		return
	}
	if err := s.btManager.SendMediaControl(command); err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(StatusResponse{Status: "success"})
}

// handleNetworkStatus reports whether the Bluetooth tethering link (bnep0) is
// up.
func (s *Server) handleNetworkStatus(w http.ResponseWriter, r *http.Request) {
	link, err := netlink.LinkByName("bnep0")
	if err != nil || link.Attrs().Flags&net.FlagUp == 0 {
		json.NewEncoder(w).Encode(StatusResponse{Status: "down"})
		return
	}
	json.NewEncoder(w).Encode(StatusResponse{Status: "up"})
}

func (s *Server) handleLights(w http.ResponseWriter, r *http.Request) {
	units := s.lights.List()
	if units == nil {
		units = []lights.Unit{}
	}
	json.NewEncoder(w).Encode(units)
}

// handleWebSocket upgrades the connection, adds it to the broadcast hub and
// runs a read loop for the light-unit registration protocol. Plain dashboard
// clients never send anything and just receive broadcasts.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("HTTP: failed to upgrade connection: %v", err)
		return
	}
	s.wsHub.AddClient(conn)
	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	var unitID string
	defer func() {
		if unitID != "" {
			if s.lights.Remove(unitID) {
				s.wsHub.Broadcast(utils.WebSocketEvent{
					Type:    "lights/removed",
					Payload: utils.LightUnitPayload{ID: unitID},
				})
			}
		}
		s.wsHub.RemoveClient(conn)
	}()

	for {
		var event utils.WebSocketEvent
		if err := conn.ReadJSON(&event); err != nil {
			return
		}

		switch event.Type {
		case "lights/hello":
			raw, err := json.Marshal(event.Payload)
			if err != nil {
				continue
			}
			var hello lights.Hello
			if err := json.Unmarshal(raw, &hello); err != nil {
				log.Printf("LIGHTS: malformed hello: %v", err)
				continue
			}
			unit := s.lights.Register(hello)
			unitID = unit.ID

			// Tell the unit its assigned ID, then tell everyone else. The
			// reply goes through the hub so it cannot interleave with a
			// broadcast writing to the same connection.
			if err := s.wsHub.Send(conn, utils.WebSocketEvent{
				Type: "lights/assigned",
				Payload: utils.LightUnitPayload{
					ID: unit.ID, Name: unit.Name, Kind: unit.Kind, Pixels: unit.Pixels,
				},
			}); err != nil {
				log.Printf("LIGHTS: could not answer hello: %v", err)
			}
			s.wsHub.Broadcast(utils.WebSocketEvent{
				Type: "lights/registered",
				Payload: utils.LightUnitPayload{
					ID: unit.ID, Name: unit.Name, Kind: unit.Kind, Pixels: unit.Pixels,
				},
			})
		}
	}
}
