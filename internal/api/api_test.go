package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/hostinger/tnlneigh/internal/ctl"
	"github.com/hostinger/tnlneigh/internal/neighbor"
	"github.com/hostinger/tnlneigh/internal/seq"
)

// Helper function to parse hardware address
func parseMAC(s string) net.HardwareAddr {
	mac, _ := net.ParseMAC(s)
	return mac
}

type literalResolver struct{}

func (literalResolver) LookupAddr(host string) (netip.Addr, error) {
	return netip.ParseAddr(host)
}

// Helper function to create API with a populated cache and registered
// commands
func createAPI(entries map[string]string) *API {
	nm := neighbor.NewManager(seq.New())
	for ip, mac := range entries {
		nm.Upsert("br0", netip.MustParseAddr(ip), parseMAC(mac))
	}

	a := &API{NM: nm}
	ctl.New(nm, literalResolver{}).RegisterCommands(a)
	return a
}

func TestListNeighborsHandler_Success(t *testing.T) {
	api := createAPI(map[string]string{
		"192.168.1.10": "00:11:22:33:44:55",
		"192.168.1.20": "aa:bb:cc:dd:ee:ff",
		"2001:db8::1":  "11:22:33:44:55:66",
	})

	req := httptest.NewRequest("GET", "/neighbors", nil)
	rr := httptest.NewRecorder()

	api.ListNeighborsHandler(rr, req)

	// Check status code
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	// Check content type
	expectedContentType := "application/json"
	if contentType := rr.Header().Get("Content-Type"); contentType != expectedContentType {
		t.Errorf("handler returned wrong content type: got %v want %v", contentType, expectedContentType)
	}

	// Parse response
	var response struct {
		Neighbors []struct {
			IP        string    `json:"ip"`
			MAC       string    `json:"mac"`
			Bridge    string    `json:"bridge"`
			ExpiresAt time.Time `json:"expires_at"`
			Afi       string    `json:"afi"`
		} `json:"neighbors"`
		Count     int       `json:"count"`
		Timestamp time.Time `json:"timestamp"`
	}

	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not unmarshal response: %v", err)
	}

	if response.Count != 3 {
		t.Errorf("Expected count 3, got %d", response.Count)
	}

	if len(response.Neighbors) != 3 {
		t.Errorf("Expected 3 neighbors, got %d", len(response.Neighbors))
	}

	// Verify neighbors are sorted by IP
	expectedOrder := []string{"192.168.1.10", "192.168.1.20", "2001:db8::1"}
	for i, expected := range expectedOrder {
		if response.Neighbors[i].IP != expected {
			t.Errorf("Expected neighbor %d to be %s, got %s", i, expected, response.Neighbors[i].IP)
		}
	}

	// Verify AFI classification
	v4Count := 0
	v6Count := 0
	for _, n := range response.Neighbors {
		if n.Afi == "v4" {
			v4Count++
		} else if n.Afi == "v6" {
			v6Count++
		}
		if n.Bridge != "br0" {
			t.Errorf("Expected bridge br0, got %s", n.Bridge)
		}
	}

	if v4Count != 2 {
		t.Errorf("Expected 2 IPv4 neighbors, got %d", v4Count)
	}

	if v6Count != 1 {
		t.Errorf("Expected 1 IPv6 neighbor, got %d", v6Count)
	}
}

func TestListNeighborsHandler_EmptyList(t *testing.T) {
	api := createAPI(nil)

	req := httptest.NewRequest("GET", "/neighbors", nil)
	rr := httptest.NewRecorder()

	api.ListNeighborsHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var response struct {
		Neighbors []interface{} `json:"neighbors"`
		Count     int           `json:"count"`
		Timestamp time.Time     `json:"timestamp"`
	}

	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not unmarshal response: %v", err)
	}

	if response.Count != 0 {
		t.Errorf("Expected count 0, got %d", response.Count)
	}

	if len(response.Neighbors) != 0 {
		t.Errorf("Expected 0 neighbors, got %d", len(response.Neighbors))
	}
}

func TestListSniffedInterfacesHandler_NoSniffer(t *testing.T) {
	api := createAPI(nil)

	req := httptest.NewRequest("GET", "/sniffed-interfaces", nil)
	rr := httptest.NewRecorder()

	api.ListSniffedInterfacesHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var response struct {
		Interfaces []interface{} `json:"interfaces"`
		Count      int           `json:"count"`
		Timestamp  time.Time     `json:"timestamp"`
	}

	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not unmarshal response: %v", err)
	}

	if response.Count != 0 {
		t.Errorf("Expected count 0, got %d", response.Count)
	}
}

func TestCommandHandler_Show(t *testing.T) {
	api := createAPI(map[string]string{"10.0.0.5": "aa:bb:cc:dd:ee:ff"})

	body := `{"cmd": "tnl/neigh/show"}`
	req := httptest.NewRequest("POST", "/command", strings.NewReader(body))
	rr := httptest.NewRecorder()

	api.CommandHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var response struct {
		Reply     string    `json:"reply"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not unmarshal response: %v", err)
	}

	if !strings.Contains(response.Reply, "10.0.0.5") || !strings.Contains(response.Reply, "aa:bb:cc:dd:ee:ff") {
		t.Errorf("Expected show output with the entry, got %q", response.Reply)
	}
}

func TestCommandHandler_SetAndFlush(t *testing.T) {
	api := createAPI(nil)

	body := `{"cmd": "tnl/neigh/set", "args": ["br0", "10.0.0.9", "aa:bb:cc:dd:ee:01"]}`
	req := httptest.NewRequest("POST", "/command", strings.NewReader(body))
	rr := httptest.NewRecorder()
	api.CommandHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("set returned wrong status code: got %v", status)
	}
	if _, ok := api.NM.Lookup("br0", netip.MustParseAddr("10.0.0.9")); !ok {
		t.Errorf("Expected entry after set command")
	}

	body = `{"cmd": "tnl/neigh/flush"}`
	req = httptest.NewRequest("POST", "/command", strings.NewReader(body))
	rr = httptest.NewRecorder()
	api.CommandHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("flush returned wrong status code: got %v", status)
	}
	if len(api.NM.Entries()) != 0 {
		t.Errorf("Expected empty cache after flush command")
	}
}

func TestCommandHandler_Errors(t *testing.T) {
	api := createAPI(nil)

	testCases := []struct {
		name     string
		body     string
		code     int
		errName  string
		contains string
	}{
		{"unknown command", `{"cmd": "tnl/neigh/nonsense"}`, http.StatusNotFound, "unknown_command", "tnl/neigh/nonsense"},
		{"missing args", `{"cmd": "tnl/neigh/set", "args": ["br0"]}`, http.StatusBadRequest, "bad_arguments", "BRIDGE IP MAC"},
		{"bad mac", `{"cmd": "tnl/neigh/set", "args": ["br0", "10.0.0.9", "junk"]}`, http.StatusBadRequest, "command_failed", "bad MAC address"},
		{"bad address", `{"cmd": "tnl/neigh/set", "args": ["br0", "not-an-ip", "aa:bb:cc:dd:ee:01"]}`, http.StatusBadRequest, "command_failed", "bad IP address"},
		{"invalid json", `{`, http.StatusBadRequest, "bad_request", "Invalid JSON"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/command", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			api.CommandHandler(rr, req)

			if status := rr.Code; status != tc.code {
				t.Errorf("Expected %d, got %d", tc.code, status)
			}

			var errorResponse ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errorResponse); err != nil {
				t.Fatalf("Could not unmarshal error response: %v", err)
			}
			if errorResponse.Error != tc.errName {
				t.Errorf("Expected error %q, got %q", tc.errName, errorResponse.Error)
			}
			if !strings.Contains(errorResponse.Message, tc.contains) {
				t.Errorf("Expected message containing %q, got %q", tc.contains, errorResponse.Message)
			}
		})
	}
}

func TestAllMethodNotAllowed(t *testing.T) {
	methods := []string{"POST", "PUT", "DELETE", "PATCH"}

	for _, method := range methods {
		t.Run("ListNeighbors_"+method, func(t *testing.T) {
			api := createAPI(nil)
			req := httptest.NewRequest(method, "/neighbors", nil)
			rr := httptest.NewRecorder()

			api.ListNeighborsHandler(rr, req)

			if status := rr.Code; status != http.StatusMethodNotAllowed {
				t.Errorf("Expected %d, got %d for method %s", http.StatusMethodNotAllowed, status, method)
			}
		})

		t.Run("ListSniffers_"+method, func(t *testing.T) {
			api := createAPI(nil)
			req := httptest.NewRequest(method, "/sniffed-interfaces", nil)
			rr := httptest.NewRecorder()

			api.ListSniffedInterfacesHandler(rr, req)

			if status := rr.Code; status != http.StatusMethodNotAllowed {
				t.Errorf("Expected %d, got %d for method %s", http.StatusMethodNotAllowed, status, method)
			}
		})
	}

	t.Run("Command_GET", func(t *testing.T) {
		api := createAPI(nil)
		req := httptest.NewRequest("GET", "/command", nil)
		rr := httptest.NewRecorder()

		api.CommandHandler(rr, req)

		if status := rr.Code; status != http.StatusMethodNotAllowed {
			t.Errorf("Expected %d, got %d", http.StatusMethodNotAllowed, status)
		}

		var errorResponse ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &errorResponse); err != nil {
			t.Fatalf("Could not unmarshal error response: %v", err)
		}
		if errorResponse.Error != "method_not_allowed" {
			t.Errorf("Expected error 'method_not_allowed', got %s", errorResponse.Error)
		}
	})
}

func TestWriteErrorResponse(t *testing.T) {
	testCases := []struct {
		code    int
		error   string
		message string
	}{
		{http.StatusBadRequest, "test_error", "Test error message"},
		{http.StatusNotFound, "not_found", "Resource not found"},
		{http.StatusInternalServerError, "internal_error", "Something went wrong"},
	}

	for _, tc := range testCases {
		t.Run("writeErrorResponse", func(t *testing.T) {
			rr := httptest.NewRecorder()

			writeErrorResponse(rr, tc.code, tc.error, tc.message)

			if status := rr.Code; status != tc.code {
				t.Errorf("writeErrorResponse set wrong status code: got %v want %v", status, tc.code)
			}

			if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("writeErrorResponse set wrong content type: got %v want %v", contentType, "application/json")
			}

			var errorResponse ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errorResponse); err != nil {
				t.Fatalf("Could not unmarshal error response: %v", err)
			}

			if errorResponse.Error != tc.error {
				t.Errorf("Expected error '%s', got '%s'", tc.error, errorResponse.Error)
			}

			if errorResponse.Message != tc.message {
				t.Errorf("Expected message '%s', got '%s'", tc.message, errorResponse.Message)
			}

			if errorResponse.Code != tc.code {
				t.Errorf("Expected code %d, got %d", tc.code, errorResponse.Code)
			}
		})
	}
}

func TestWriteJSONResponse_Success(t *testing.T) {
	rr := httptest.NewRecorder()

	testData := map[string]interface{}{
		"test":  "value",
		"count": 42,
	}

	writeJSONResponse(rr, testData)

	if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("writeJSONResponse set wrong content type: got %v want %v", contentType, "application/json")
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not unmarshal response: %v", err)
	}

	if response["test"] != "value" {
		t.Errorf("Expected test field to be 'value', got %v", response["test"])
	}

	if response["count"].(float64) != 42 {
		t.Errorf("Expected count field to be 42, got %v", response["count"])
	}
}
