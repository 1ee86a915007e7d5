package server

import "net/http"

func (s *Server) handleCafeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{Success: true, Data: s.cafe.Info()})
}

func (s *Server) handleCafeMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{Success: true, Data: s.cafe.Menu()})
}

func (s *Server) handleCafeAvailableMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{Success: true, Data: s.cafe.AvailableMenu()})
}

func (s *Server) handleCafeBusinessHours(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{Success: true, Data: s.cafe.BusinessHours()})
}

func (s *Server) handleCafeFacilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{Success: true, Data: s.cafe.Facilities()})
}
