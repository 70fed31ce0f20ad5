package aggregation

import (
	"context"
	"net/http"
	"sync"

	"console/database"
	"console/schemas"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ConsoleWSMessage struct {
	Action     string   `json:"action"`
	PartnerIDs []string `json:"partner_ids,omitempty"`
	Status     string   `json:"status,omitempty"`
}

type ConsoleWSView struct {
	Action string             `json:"action"`
	View   schemas.MergedView `json:"view"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConsoleWebSocketHandler mantém a visão viva de uma sessão do console. O
// cliente manda set_scope com a lista de parceiros (vazia = todos os
// ativos) e o filtro de status; o servidor empurra a visão consolidada a
// cada atualização. Fechar a conexão fecha o multiplexer e todos os
// streams dele.
func (s *Service) ConsoleWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "Não foi possível fazer upgrade para websocket", http.StatusInternalServerError)
		return
	}
	defer conn.Close()

	mux := s.NewMultiplexer()
	defer mux.Close()

	writeMu := sync.Mutex{}
	mux.OnUpdate(func(view schemas.MergedView) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ConsoleWSView{Action: "view", View: view}); err != nil {
			conn.Close()
		}
	})

	for {
		msg := ConsoleWSMessage{}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		if msg.Action != "set_scope" {
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), database.MONGO_TIMEOUT)
		scope, err := s.resolveScope(ctx, msg.PartnerIDs)
		cancel()
		if err != nil {
			s.log.Warn("não foi possível resolver o escopo da sessão", zap.Error(err))
			continue
		}

		mux.SetScope(scope, Filter{Status: msg.Status})
	}
}
