// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package mock serves a minimal Redfish BMC for tests
package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// ServerConfig holds the initial state of the mock BMC
type ServerConfig struct {
	Username   string
	Password   string
	PowerWatts float64
	// LimitWatts of 0 reports no active limit
	LimitWatts float64
	// NoPowerControl serves a Power resource without PowerControl entries
	NoPowerControl bool
}

// Server is a mock Redfish BMC with a single chassis
type Server struct {
	server *httptest.Server

	mu       sync.RWMutex
	config   ServerConfig
	sessions map[string]bool
	requests map[string]int
}

// NewServer starts a mock Redfish server
func NewServer(config ServerConfig) *Server {
	if config.Username == "" {
		config.Username = "admin"
	}
	if config.Password == "" {
		config.Password = "password"
	}

	s := &Server{
		config:   config,
		sessions: map[string]bool{},
		requests: map[string]int{},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// SetPower changes the power consumption and the limit reported
func (s *Server) SetPower(watts, limit float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.PowerWatts = watts
	s.config.LimitWatts = limit
}

// ActiveSessions returns the number of sessions not yet deleted
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Requests returns how many times path was requested
func (s *Server) Requests(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[path]
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("OData-Version", "4.0")

	switch r.URL.Path {
	case "/redfish/v1/", "/redfish/v1":
		s.write(w, map[string]any{
			"@odata.type":    "#ServiceRoot.v1_5_0.ServiceRoot",
			"@odata.id":      "/redfish/v1/",
			"Id":             "RootService",
			"Name":           "Root Service",
			"RedfishVersion": "1.6.1",
			"Chassis":        map[string]any{"@odata.id": "/redfish/v1/Chassis"},
			"SessionService": map[string]any{"@odata.id": "/redfish/v1/SessionService"},
			"Links": map[string]any{
				"Sessions": map[string]any{"@odata.id": "/redfish/v1/SessionService/Sessions"},
			},
		})
	case "/redfish/v1/SessionService/Sessions":
		s.createSession(w, r)
	case "/redfish/v1/Chassis":
		s.write(w, map[string]any{
			"@odata.type":         "#ChassisCollection.ChassisCollection",
			"@odata.id":           "/redfish/v1/Chassis",
			"Name":                "Chassis Collection",
			"Members@odata.count": 1,
			"Members":             []map[string]any{{"@odata.id": "/redfish/v1/Chassis/1"}},
		})
	case "/redfish/v1/Chassis/1":
		s.write(w, map[string]any{
			"@odata.type": "#Chassis.v1_10_0.Chassis",
			"@odata.id":   "/redfish/v1/Chassis/1",
			"Id":          "1",
			"Name":        "Computer System Chassis",
			"ChassisType": "RackMount",
			"Power":       map[string]any{"@odata.id": "/redfish/v1/Chassis/1/Power"},
		})
	case "/redfish/v1/Chassis/1/Power":
		s.write(w, s.power())
	default:
		id, ok := strings.CutPrefix(r.URL.Path, "/redfish/v1/SessionService/Sessions/")
		if ok && r.Method == http.MethodDelete {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds struct {
		UserName string `json:"UserName"`
		Password string `json:"Password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if creds.UserName != s.config.Username || creds.Password != s.config.Password {
		s.mu.Unlock()
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id := fmt.Sprintf("session%d", len(s.sessions)+1)
	s.sessions[id] = true
	s.mu.Unlock()

	location := "/redfish/v1/SessionService/Sessions/" + id
	w.Header().Set("X-Auth-Token", "token-"+id)
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"@odata.type": "#Session.v1_1_0.Session",
		"@odata.id":   location,
		"Id":          id,
		"UserName":    creds.UserName,
	})
}

func (s *Server) power() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	controls := []map[string]any{}
	if !s.config.NoPowerControl {
		watts := s.config.PowerWatts
		controls = append(controls, map[string]any{
			"@odata.id":          "/redfish/v1/Chassis/1/Power#/PowerControl/0",
			"MemberId":           "0",
			"Name":               "System Power Control",
			"PowerConsumedWatts": watts,
			"PowerMetrics": map[string]any{
				"IntervalInMin":        1,
				"MinConsumedWatts":     watts * 0.5,
				"MaxConsumedWatts":     watts * 2,
				"AverageConsumedWatts": watts,
			},
			"PowerLimit": map[string]any{
				"LimitInWatts":   s.config.LimitWatts,
				"LimitException": "NoAction",
			},
		})
	}
	return map[string]any{
		"@odata.type":  "#Power.v1_5_0.Power",
		"@odata.id":    "/redfish/v1/Chassis/1/Power",
		"Id":           "Power",
		"Name":         "Power",
		"PowerControl": controls,
	}
}

func (s *Server) write(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
