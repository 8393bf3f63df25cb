// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
)

const (
	oledWidth  = 128
	oledHeight = 64

	// OLEDDefaultAddr is the only address the upstream I2C driver opens.
	OLEDDefaultAddr = 0x3C
)

// Panel is the part of an SSD1306 device the OLED sink draws on.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED shows contact, motion and relaxation on a 128x64 SSD1306.
type OLED struct {
	mu     sync.Mutex
	latest View
	have   bool

	panel    Panel
	bus      io.Closer
	interval time.Duration
	log      *zap.Logger

	running bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// OpenOLED initialises periph, opens the default I2C bus and the display at addr.
func OpenOLED(addr uint16, interval time.Duration, log *zap.Logger) (*OLED, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if addr != OLEDDefaultAddr {
		return nil, fmt.Errorf("display at 0x%02X: only 0x%02X is supported", addr, OLEDDefaultAddr)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", addr, err)
	}
	log.Info("oled display initialized", zap.String("addr", fmt.Sprintf("0x%02X", addr)))

	o := NewOLED(dev, interval, log)
	o.bus = bus
	if err := o.show([]string{"Brainwave DAS", "Waiting..."}); err != nil {
		log.Warn("oled splash failed", zap.Error(err))
	}
	return o, nil
}

// NewOLED wraps an already opened panel.
func NewOLED(panel Panel, interval time.Duration, log *zap.Logger) *OLED {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OLED{
		panel:    panel,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (o *OLED) Name() string { return "oled" }
func (o *OLED) Class() Class { return ClassDisplay }

func (o *OLED) Consume(_ context.Context, v View) error {
	o.mu.Lock()
	o.latest = v
	o.have = true
	o.mu.Unlock()
	return nil
}

// Run redraws the panel on every tick until Close.
func (o *OLED) Run(ctx context.Context) {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()
	defer close(o.done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C:
			if err := o.Refresh(); err != nil {
				o.log.Warn("oled update failed", zap.Error(err))
			}
		}
	}
}

// Refresh draws the latest view once.
func (o *OLED) Refresh() error {
	o.mu.Lock()
	v, have := o.latest, o.have
	o.mu.Unlock()
	return o.show(oledLines(v, have))
}

func oledLines(v View, have bool) []string {
	if !have {
		return []string{"Brainwave DAS", "Waiting..."}
	}
	s := v.Snapshot
	band := "OFF"
	if s.ContactActive {
		band = "ON"
	}
	return []string{
		"Band: " + band,
		fmt.Sprintf("A:%4.2f G:%5.1f", s.Accel.Magnitude(), s.Gyro.Magnitude()),
		fmt.Sprintf("Relax: %.2f", analysis.RelaxationScore(s)),
	}
}

func (o *OLED) show(lines []string) error {
	img := oledFrame(lines)
	return o.panel.Draw(o.panel.Bounds(), img, image.Point{})
}

// oledFrame renders up to four text lines, 13px apart.
func oledFrame(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// Close stops the render loop, blanks the panel and releases the bus.
func (o *OLED) Close() error {
	o.once.Do(func() { close(o.stop) })
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if running {
		<-o.done
	}

	err := o.panel.Halt()
	if o.bus != nil {
		if cerr := o.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
