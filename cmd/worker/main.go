// Command worker runs the interaction worker: it wires the database
// client, Slack notifier and provider plugins into a session and serves
// the RPC handlers over a minimal HTTP dispatch surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/moderatehq/voiceworker/internal/config"
	"github.com/moderatehq/voiceworker/internal/dbservice"
	"github.com/moderatehq/voiceworker/internal/logging"
	"github.com/moderatehq/voiceworker/internal/rpc"
	"github.com/moderatehq/voiceworker/internal/session"
	"github.com/moderatehq/voiceworker/internal/slacknotify"
	"github.com/moderatehq/voiceworker/internal/transcript"
	"github.com/moderatehq/voiceworker/pkg/llm"
	"github.com/moderatehq/voiceworker/pkg/plugins/elevenlabs"
	"github.com/moderatehq/voiceworker/pkg/plugins/portkey"
	"github.com/moderatehq/voiceworker/pkg/plugins/sarvam"
)

const shutdownGracePeriod = 15 * time.Second

// httpRegistrar exposes registered handlers as POST /rpc/<method>, with
// the request body as the invocation payload.
type httpRegistrar struct {
	mux *http.ServeMux
}

func newHTTPRegistrar(mux *http.ServeMux) *httpRegistrar {
	return &httpRegistrar{mux: mux}
}

func (r *httpRegistrar) RegisterMethod(method string, handler rpc.HandlerFunc) {
	r.mux.HandleFunc("POST /rpc/"+method, func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "read payload", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handler(req.Context(), string(body)))
	})
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, addr, room string) error {
	if err := cfg.Require("DB_SERVICE_URL"); err != nil {
		return err
	}
	if room == "" {
		room = "room-" + uuid.NewString()
	}

	db, err := dbservice.New(cfg.DBServiceURL, dbservice.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("database client: %w", err)
	}

	var notifier *slacknotify.Notifier
	if cfg.SlackToken != "" {
		notifier, err = slacknotify.New(cfg.SlackToken, logger)
		if err != nil {
			return fmt.Errorf("slack notifier: %w", err)
		}
	}

	// Provider plugins are optional: the worker serves whatever the
	// configured keys allow.
	if cfg.PortkeyAPIKey != "" {
		model, err := portkey.New(portkey.Options{APIKey: cfg.PortkeyAPIKey, Logger: logger})
		if err != nil {
			return fmt.Errorf("portkey plugin: %w", err)
		}
		logger.Info("llm plugin ready", "provider", "portkey", "model", model.Model())
	}
	if cfg.SarvamAPIKey != "" {
		if _, err := sarvam.NewSTT(sarvam.STTOptions{APIKey: cfg.SarvamAPIKey}); err != nil {
			return fmt.Errorf("sarvam stt plugin: %w", err)
		}
		if _, err := sarvam.NewTTS(sarvam.TTSOptions{APIKey: cfg.SarvamAPIKey}); err != nil {
			return fmt.Errorf("sarvam tts plugin: %w", err)
		}
		logger.Info("speech plugins ready", "provider", "sarvam")
	}
	if cfg.ElevenAPIKey != "" {
		if _, err := elevenlabs.NewTTS(elevenlabs.TTSOptions{APIKey: cfg.ElevenAPIKey}); err != nil {
			return fmt.Errorf("elevenlabs tts plugin: %w", err)
		}
		logger.Info("tts plugin ready", "provider", "elevenlabs")
	}

	store := transcript.NewStore(cfg.TranscriptDir, room)
	sess := session.New(nil, store)
	sess.OnUserSpeechCommitted(func(msg llm.ChatMessage, tt transcript.TimedTranscript) {
		logger.Debug("user speech committed", "content", msg.Content, "start", tt.Start)
	})

	mux := http.NewServeMux()
	reg := newHTTPRegistrar(mux)
	rpc.NewInteractionHandler(db, sess, logger).Register(reg)
	rpc.NewTaskHandler(sess, logger).Register(reg)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.HealthCheck(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("worker started", "addr", addr, "room", room, "session_id", sess.ID())
	if notifier != nil && cfg.SlackChannelID != "" {
		notifier.SendQuietly(ctx, cfg.SlackChannelID,
			fmt.Sprintf("Worker started for room `%s`", room), slacknotify.SendOptions{})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	if store.Len() > 0 {
		if err := store.Flush(); err != nil {
			logger.Error("flush transcripts", "error", err)
		} else {
			logger.Info("transcripts flushed", "path", store.Path(), "entries", store.Len())
		}
	}
	if notifier != nil && cfg.SlackChannelID != "" {
		notifier.SendQuietly(context.Background(), cfg.SlackChannelID,
			fmt.Sprintf("Worker stopped for room `%s` (%d transcript entries)", room, store.Len()),
			slacknotify.SendOptions{})
	}

	logger.Info("worker stopped")
	return runErr
}

func main() {
	addr := flag.String("addr", ":8090", "listen address for the RPC surface")
	room := flag.String("room", "", "room identifier (generated when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	logger, closeLogs, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLogs() }()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *addr, *room); err != nil {
		msg := err.Error()
		if !strings.Contains(msg, "context canceled") {
			fmt.Fprintf(os.Stderr, "worker: %s\n", msg)
			os.Exit(1)
		}
	}
}
