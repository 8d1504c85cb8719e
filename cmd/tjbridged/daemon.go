package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"tjbridge/internal/bridge"
	"tjbridge/internal/config"
	"tjbridge/internal/httpapi"
	"tjbridge/internal/keystore"
	"tjbridge/internal/native"
	"tjbridge/internal/session"
	"tjbridge/internal/simhost"
)

const defaultKafkaTopic = "tjbridge.events"

// daemon owns every long-lived component behind the HTTP handler.
type daemon struct {
	cfg    config.Config
	log    zerolog.Logger
	store  keystore.Store
	sim    *simhost.Server
	client *bridge.Client
	boot   *session.Bootstrapper
	broker *httpapi.EventBroker
	kafka  *bridge.KafkaPublisher
	ready  atomic.Bool

	handler    http.Handler
	nativeDesc string
	defaults   session.Options
}

func newDaemon(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, log: logger}
	callTimeout, _ := config.ParseDuration(cfg.CallTimeout)
	opTimeout, _ := config.ParseDuration(cfg.OperationTimeout)
	waitTimeout, _ := config.ParseDuration(cfg.WaitTimeout)

	store, err := keystore.Open(ctx, keystore.Options{
		Kind:     cfg.Keystore,
		Path:     cfg.KeystorePath,
		RedisURL: cfg.RedisURL,
		Prefix:   "tjbridge:",
	})
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}
	d.store = store

	mod, err := d.openNative(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	d.broker = httpapi.NewEventBroker()
	pub := bridge.MultiPublisher{d.broker}
	if strings.TrimSpace(cfg.KafkaBrokers) != "" {
		topic := cfg.KafkaTopic
		if topic == "" {
			topic = defaultKafkaTopic
		}
		d.kafka = bridge.NewKafkaPublisher(cfg.KafkaBrokers, topic, &logger)
		pub = append(pub, d.kafka)
	}

	d.client = bridge.New(mod, bridge.Config{
		Platform:         strings.ToLower(cfg.Platform),
		CallTimeout:      callTimeout,
		OperationTimeout: opTimeout,
		Logger:           &logger,
		Publisher:        pub,
	})
	d.boot = session.New(d.client, store, &logger)
	d.defaults = session.Options{
		SDKKey: cfg.SDKKey,
		Flags:  connectFlags(cfg.ConnectFlags),
		Debug:  cfg.Debug,
		Prompt: session.StaticPrompt(session.TrackingUnavailable),
	}

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetWaitTimeout(waitTimeout)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	d.handler = httpapi.NewMux(httpapi.Options{
		Client:          d.client,
		Session:         d.boot,
		Events:          d.broker,
		ConnectDefaults: d.defaults,
		Ready:           d.ready.Load,
	})
	return d, nil
}

// openNative picks the module in order: simulator, spawned binary, remote
// host URL, and finally the unlinked stand-in.
func (d *daemon) openNative(ctx context.Context) (native.Module, error) {
	opts := native.HTTPOptions{Logger: &d.log}
	switch {
	case d.cfg.Simulate:
		sim, err := simhost.Listen("127.0.0.1:0", simhost.Options{Logger: &d.log})
		if err != nil {
			return nil, err
		}
		sim.Start()
		d.sim = sim
		d.nativeDesc = "simulated " + sim.URL()
		return native.NewHTTPModule(sim.URL(), opts), nil
	case d.cfg.NativeBin != "":
		mod, sp, err := native.Spawn(ctx, native.SpawnConfig{
			Bin:       d.cfg.NativeBin,
			Host:      d.cfg.NativeHost,
			PortStart: d.cfg.NativePortStart,
			PortEnd:   d.cfg.NativePortEnd,
		}, opts)
		if err != nil {
			return nil, fmt.Errorf("spawn native host: %w", err)
		}
		d.nativeDesc = fmt.Sprintf("spawned pid %d", sp.PID())
		return mod, nil
	case d.cfg.NativeURL != "":
		d.nativeDesc = d.cfg.NativeURL
		return native.NewHTTPModule(d.cfg.NativeURL, opts), nil
	}
	d.nativeDesc = "unlinked"
	d.log.Warn().Str("platform", d.cfg.Platform).Msg("no native module configured; every call will fail")
	return native.Unlinked(strings.ToLower(d.cfg.Platform)), nil
}

// start marks the daemon ready and connects in the background when an SDK
// key is known, either configured or stored by an earlier run.
func (d *daemon) start(ctx context.Context) {
	d.ready.Store(true)
	key := d.defaults.SDKKey
	if key == "" {
		stored, ok, err := d.boot.StoredSDKKey(ctx)
		if err != nil || !ok {
			return
		}
		key = stored
	}
	go func() {
		opts := d.defaults
		opts.SDKKey = key
		opts.OnWarning = func(env native.Envelope) {
			d.log.Warn().Str("error", env.Error).Msg("auto-connect warning")
		}
		if _, err := d.boot.Connect(ctx, opts); err != nil {
			d.log.Warn().Err(err).Msg("auto-connect failed")
		}
	}()
}

// Close tears components down in reverse order of construction.
func (d *daemon) Close(ctx context.Context) {
	d.ready.Store(false)
	d.broker.Close()
	if err := d.client.Close(); err != nil {
		d.log.Warn().Err(err).Msg("close client")
	}
	if d.kafka != nil {
		if err := d.kafka.Close(); err != nil {
			d.log.Warn().Err(err).Msg("close kafka publisher")
		}
	}
	if d.sim != nil {
		if err := d.sim.Shutdown(ctx); err != nil {
			d.log.Warn().Err(err).Msg("shutdown simulator")
		}
	}
	if err := d.store.Close(); err != nil {
		d.log.Warn().Err(err).Msg("close keystore")
	}
}

// connectFlags types configured flag values: booleans and numbers are
// passed as such, everything else stays a string.
func connectFlags(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		v = strings.TrimSpace(v)
		if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
		} else if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = n
		} else {
			out[k] = v
		}
	}
	return out
}
