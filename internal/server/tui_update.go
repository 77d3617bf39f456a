// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	clients := make([]ClientInfo, 0)
	for _, client := range s.snapshotClients() {
		clients = append(clients, ClientInfo{
			Name:  client.Name,
			ID:    client.ID,
			Codec: client.Codec,
		})
	}

	status := ServerStatus{
		Name:    s.config.Name,
		Port:    s.config.Port,
		Clients: clients,
		Title:   s.Metadata().Title,
		Playing: s.Playing(),
	}
	if s.controller != nil {
		session := s.controller.Status()
		status.Started = session.Started
		status.BufferedMs = session.BufferedMs
		status.Underruns = session.Stats.UnderrunPulls
	}

	s.tui.Update(status)
}
