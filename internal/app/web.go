package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/config"
	"github.com/relabs-tech/brainwave_das/internal/sink"
)

// webServer holds the latest relayed snapshot and the websocket clients.
type webServer struct {
	mu       sync.RWMutex
	last     sink.Record
	haveLast bool

	hub *hub
	log *zap.Logger
}

func newWebServer(log *zap.Logger) *webServer {
	return &webServer{hub: newHub(log), log: log}
}

// onSnapshot is the MQTT handler for the snapshot topic.
func (s *webServer) onSnapshot(payload []byte) {
	var r sink.Record
	if err := json.Unmarshal(payload, &r); err != nil {
		s.log.Warn("web: snapshot unmarshal error", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.last = r
	s.haveLast = true
	s.mu.Unlock()

	s.hub.broadcast(payload)
}

func (s *webServer) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.haveLast {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.last); err != nil {
		s.log.Warn("web: json encode error", zap.Error(err))
	}
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.hub.serveWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the latest relayed snapshot over HTTP and streams every
// snapshot to websocket clients.
func RunWeb(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	client, err := sink.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("web: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	s := newWebServer(log)
	defer s.hub.close()

	token := client.Subscribe(cfg.TopicSnapshot, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.onSnapshot(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.TopicSnapshot, token.Error())
	}
	log.Info("web: subscribed", zap.String("topic", cfg.TopicSnapshot))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: s.routes(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info("web server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
