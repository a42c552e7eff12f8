package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/hostinger/tnlneigh/internal/neighbor"
	"github.com/hostinger/tnlneigh/internal/sniffer"
)

// API exposes the neighbor cache over HTTP: a JSON view of the table, the
// active sniffers, and a command endpoint. It is also the concrete command
// dispatcher the control surface registers against.
type API struct {
	NM      *neighbor.Manager
	Sniffer *sniffer.Manager

	mu       sync.Mutex
	commands map[string]command
}

type command struct {
	usage   string
	minArgs int
	maxArgs int
	fn      func(args []string) (string, error)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSONResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, code int, errName, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errName,
		Message: message,
		Code:    code,
	})
}

// Register implements the control surface's Dispatcher interface.
func (a *API) Register(name, usage string, minArgs, maxArgs int, fn func(args []string) (string, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.commands == nil {
		a.commands = make(map[string]command)
	}
	a.commands[name] = command{usage: usage, minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

func (a *API) ListNeighborsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is supported")
		return
	}

	type NeighborView struct {
		IP        string    `json:"ip"`
		MAC       string    `json:"mac"`
		Bridge    string    `json:"bridge"`
		ExpiresAt time.Time `json:"expires_at"`
		Afi       string    `json:"afi"`
	}

	output := []NeighborView{}
	for _, e := range a.NM.Entries() {
		ip := e.IP.Unmap()
		afi := "v4"
		if !ip.Is4() {
			afi = "v6"
		}

		output = append(output, NeighborView{
			IP:        ip.String(),
			MAC:       e.MAC.String(),
			Bridge:    e.Bridge,
			ExpiresAt: e.Expires,
			Afi:       afi,
		})
	}

	sort.Slice(output, func(i, j int) bool {
		return output[i].IP < output[j].IP
	})

	writeJSONResponse(w, struct {
		Neighbors []NeighborView `json:"neighbors"`
		Count     int            `json:"count"`
		Timestamp time.Time      `json:"timestamp"`
	}{
		Neighbors: output,
		Count:     len(output),
		Timestamp: time.Now(),
	})
}

func (a *API) ListSniffedInterfacesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is supported")
		return
	}

	type SniffedInterface struct {
		Interface string    `json:"interface"`
		StartedAt time.Time `json:"started_at"`
	}

	sniffed := []SniffedInterface{}
	if a.Sniffer != nil {
		for iface, started := range a.Sniffer.ListActiveSniffers() {
			sniffed = append(sniffed, SniffedInterface{
				Interface: iface,
				StartedAt: started,
			})
		}
	}

	sort.Slice(sniffed, func(i, j int) bool {
		return sniffed[i].Interface < sniffed[j].Interface
	})

	writeJSONResponse(w, struct {
		Interfaces []SniffedInterface `json:"interfaces"`
		Count      int                `json:"count"`
		Timestamp  time.Time          `json:"timestamp"`
	}{
		Interfaces: sniffed,
		Count:      len(sniffed),
		Timestamp:  time.Now(),
	})
}

// CommandHandler runs one registered admin command and relays its reply or
// error text.
func (a *API) CommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is supported")
		return
	}

	var req struct {
		Cmd  string   `json:"cmd"`
		Args []string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON body")
		return
	}

	a.mu.Lock()
	cmd, ok := a.commands[req.Cmd]
	a.mu.Unlock()
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "unknown_command", "Unknown command: "+req.Cmd)
		return
	}

	if len(req.Args) < cmd.minArgs || len(req.Args) > cmd.maxArgs {
		writeErrorResponse(w, http.StatusBadRequest, "bad_arguments", "Usage: "+req.Cmd+" "+cmd.usage)
		return
	}

	reply, err := cmd.fn(req.Args)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "command_failed", err.Error())
		return
	}

	writeJSONResponse(w, struct {
		Reply     string    `json:"reply"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Reply:     reply,
		Timestamp: time.Now(),
	})
}
