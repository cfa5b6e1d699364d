package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/rtranscribe/livestt/internal/audio"
	"github.com/rtranscribe/livestt/internal/backend"
	"github.com/rtranscribe/livestt/internal/bridge"
	"github.com/rtranscribe/livestt/internal/llm"
	"github.com/rtranscribe/livestt/internal/preset"
	"github.com/rtranscribe/livestt/internal/session"
)

type Config struct {
	Backend struct {
		Mode   string `yaml:"mode"` // "local" or "remote"
		Host   string `yaml:"host"`
		Port   int    `yaml:"port"`
		Python string `yaml:"python"`
		Script string `yaml:"script"`
		Model  string `yaml:"model"`
	} `yaml:"backend"`
	Session struct {
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
		UseVAD   bool   `yaml:"use_vad"`
	} `yaml:"session"`
	Bridge struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"bridge"`
	LLM struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`
	Presets struct {
		RedisAddr string `yaml:"redis_addr"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"presets"`
}

func main() {
	var configFile, audioFile, presetID string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.StringVar(&audioFile, "audio", "-", "Raw PCM input (16-bit LE mono 24 kHz), '-' for stdin")
	flag.StringVar(&presetID, "preset", "", "Preset ID whose prompt drives the post-session summary")
	flag.Parse()

	config := &Config{}
	if err := loadConfig(configFile, config); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	svc, stop := newBackendService(config)
	defer stop()

	if config.Bridge.Enabled {
		runBridge(config, svc)
		return
	}
	runSession(config, svc, audioFile, presetID)
}

func loadConfig(filename string, config *Config) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	return decoder.Decode(config)
}

func newBackendService(config *Config) (backend.Service, func()) {
	if config.Backend.Mode == "local" {
		local := backend.NewLocal(
			config.Backend.Python,
			config.Backend.Script,
			config.Backend.Port,
			config.Backend.Model,
		)
		return local, local.Stop
	}
	return backend.NewRemote(config.Backend.Host, config.Backend.Port), func() {}
}

func runBridge(config *Config, svc backend.Service) {
	srv := bridge.New(bridge.Config{
		Host: config.Bridge.Host,
		Port: config.Bridge.Port,
		Session: session.Config{
			Model:    config.Session.Model,
			Language: config.Session.Language,
			UseVAD:   config.Session.UseVAD,
			Host:     config.Backend.Host,
		},
	}, svc)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Bridge error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down bridge...")
	srv.Stop()
}

func runSession(config *Config, svc backend.Service, audioFile, presetID string) {
	printer := &printListener{}
	sess := session.New(session.Config{
		Model:    config.Session.Model,
		Language: config.Session.Language,
		UseVAD:   config.Session.UseVAD,
		Host:     config.Backend.Host,
	}, svc, printer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sess.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize session: %v", err)
	}

	input := os.Stdin
	if audioFile != "-" {
		file, err := os.Open(audioFile)
		if err != nil {
			sess.Close()
			log.Fatalf("Failed to open audio input: %v", err)
		}
		defer file.Close()
		input = file
	}

	streamAudio(ctx, sess, input)

	sess.Close()
	<-sess.Done()

	fmt.Println(sess.Metrics().Summary())

	if config.LLM.APIKey != "" {
		summarize(config, presetID, printer.transcript())
	}
}

// streamAudio feeds PCM to the session in roughly real-time paced chunks
// until the reader drains or ctx is cancelled.
func streamAudio(ctx context.Context, sess *session.Session, r io.Reader) {
	// 4096 bytes = 2048 samples, about 85 ms at 24 kHz.
	const chunkSize = 4096
	ticker := time.NewTicker(85 * time.Millisecond)
	defer ticker.Stop()

	buf := make([]byte, chunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := io.ReadFull(r, buf)
		if n > 0 {
			sess.SendAudio(audio.RawBytes(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func summarize(config *Config, presetID, transcript string) {
	if strings.TrimSpace(transcript) == "" {
		return
	}

	client, err := llm.NewClient(config.LLM.APIKey, config.LLM.Model)
	if err != nil {
		log.Printf("LLM unavailable: %v", err)
		return
	}

	system := "Summarize the following transcript in a few sentences."
	if presetID != "" && config.Presets.RedisAddr != "" {
		store := preset.NewStore(
			redis.NewClient(&redis.Options{Addr: config.Presets.RedisAddr}),
			config.Presets.KeyPrefix,
		)
		if p, err := store.Get(context.Background(), presetID); err != nil {
			log.Printf("Preset %s unavailable: %v", presetID, err)
		} else {
			system = p.Prompt
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	summary, err := client.Complete(ctx, system, transcript)
	if err != nil {
		log.Printf("Summary failed: %v", err)
		return
	}
	fmt.Println("--- Summary ---")
	fmt.Println(summary)
}

// printListener prints transcription events and keeps the running
// transcript for the optional post-session summary.
type printListener struct {
	mu    sync.Mutex
	lines []string
}

func (p *printListener) OnTranscription(t session.Transcription) {
	fmt.Printf("[%6.2f - %6.2f] %s\n", t.Start, t.End, t.Text)
	p.mu.Lock()
	p.lines = append(p.lines, t.Text)
	p.mu.Unlock()
}

func (p *printListener) OnError(err error) {
	log.Printf("Session error: %v", err)
}

func (p *printListener) OnClose(ev session.CloseEvent) {
	log.Printf("Session closed (%d %s)", ev.Code, ev.Reason)
}

func (p *printListener) transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.lines, " ")
}
