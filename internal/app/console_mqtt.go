package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/config"
	"github.com/relabs-tech/brainwave_das/internal/sink"
)

// RunConsoleMQTT prints every snapshot and event relayed over MQTT until
// SIGINT/SIGTERM.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	client, err := sink.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("console: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	printer := &consolePrinter{out: os.Stdout, log: log}
	subs := map[string]mqtt.MessageHandler{
		cfg.TopicSnapshot: func(_ mqtt.Client, msg mqtt.Message) { printer.snapshot(msg.Payload()) },
		cfg.TopicEvents:   func(_ mqtt.Client, msg mqtt.Message) { printer.event(msg.Payload()) },
	}
	for topic, handler := range subs {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Info("console: subscribed", zap.String("topic", topic))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("console: shutting down")
	return nil
}

type consolePrinter struct {
	out io.Writer
	log *zap.Logger
}

func (p *consolePrinter) snapshot(payload []byte) {
	var r sink.Record
	if err := json.Unmarshal(payload, &r); err != nil {
		p.log.Warn("console: snapshot unmarshal error", zap.Error(err))
		return
	}
	band := "OFF"
	if r.ContactActive {
		band = "ON "
	}
	fmt.Fprintf(p.out,
		"[SNAP] band=%s acc=(%6.2f %6.2f %6.2f) gyro=(%7.2f %7.2f %7.2f) alpha=%5.2f beta=%5.2f delta=%5.2f theta=%5.2f gamma=%5.2f\n",
		band, r.Accel.X, r.Accel.Y, r.Accel.Z, r.Gyro.X, r.Gyro.Y, r.Gyro.Z,
		r.Alpha, r.Beta, r.Delta, r.Theta, r.Gamma,
	)
}

func (p *consolePrinter) event(payload []byte) {
	var e struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		p.log.Warn("console: event unmarshal error", zap.Error(err))
		return
	}
	fmt.Fprintf(p.out, "[EVNT] %s: %s\n", e.Kind, e.Message)
}
