package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
)

// WSHandler exposes the quiz screens' actions over a websocket: the start
// screen sends "start", the quiz screen sends select/lock/skip/next/previous/
// restart, the results screen sends "highscores". Timer-forced locks are
// pushed server-side through the session subscription.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Amount     int    `json:"amount"`
	Difficulty string `json:"difficulty"`
	Source     string `json:"source"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the per-connection message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		http.Error(w, "missing profile", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The subscription only exists once a session does, so the pump is
	// started lazily after the first successful start or resume.
	var cancelUpdates func()
	subscribed := false
	subscribe := func() {
		if subscribed {
			return
		}
		updates, cancel, err := h.service.Subscribe(r.Context(), profile)
		if err != nil {
			return
		}
		subscribed = true
		cancelUpdates = cancel
		go func() {
			for {
				select {
				case view, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: viewType(view), Payload: view}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	}
	defer func() {
		if cancelUpdates != nil {
			cancelUpdates()
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, profile, inbound, send, subscribe, &subscribed)
	}

	close(closeSignals)
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, profile string, inbound inboundMessage, send chan<- outboundMessage[any], subscribe func(), subscribed *bool) {
	ctx := r.Context()
	sendErr := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	sendErrMsg := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}
	sendView := func(view app.SessionView) {
		send <- outboundMessage[any]{Type: viewType(view), Payload: view}
	}

	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErrMsg("invalid payload")
			return
		}
		view, err := h.service.Start(ctx, profile, app.StartRequest{
			Amount:     payload.Amount,
			Difficulty: domain.Difficulty(payload.Difficulty),
			Source:     domain.Source(payload.Source),
		})
		if err != nil {
			sendErr(err)
			return
		}
		subscribe()
		sendView(view)
	case "resume":
		view, err := h.service.Resume(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		subscribe()
		sendView(view)
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErrMsg("invalid payload")
			return
		}
		view, err := h.service.Select(ctx, profile, payload.Option)
		if err != nil {
			sendErr(err)
			return
		}
		sendView(view)
	case "lock":
		view, err := h.service.Lock(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		sendView(view)
	case "skip":
		view, err := h.service.Skip(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		sendView(view)
	case "next":
		view, err := h.service.Advance(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		sendView(view)
	case "previous":
		view, err := h.service.Retreat(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		sendView(view)
	case "restart":
		if err := h.service.Restart(ctx, profile); err != nil {
			sendErr(err)
			return
		}
		// Restart closes subscriber channels; the pump has ended.
		*subscribed = false
		send <- outboundMessage[any]{Type: "restarted", Payload: struct{}{}}
	case "highscores":
		scores, err := h.service.HighScores(ctx, profile)
		if err != nil {
			sendErr(err)
			return
		}
		send <- outboundMessage[any]{Type: "highscores", Payload: scores}
	default:
		sendErrMsg("unsupported message type")
	}
}

func viewType(view app.SessionView) string {
	if view.State == domain.SessionFinished {
		return "finished"
	}
	return "session"
}
