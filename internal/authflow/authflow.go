// Package authflow runs the browser-assisted Google sign-in. The CLI
// listens on a loopback port, the user completes sign-in in the
// browser, and the resulting Google ID token is posted back to the
// local listener and exchanged for an API credential pair.
package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/observe"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/log"
)

// ErrFlowTimeout indicates the browser never called back within the
// allotted window.
var ErrFlowTimeout = errors.New("sign-in timed out waiting for the browser")

// Options configures a sign-in flow. The zero value is usable.
type Options struct {
	// Addr is the loopback listen address. Defaults to an ephemeral
	// port on 127.0.0.1.
	Addr string

	// Timeout bounds the wait for the browser callback. Defaults to
	// five minutes.
	Timeout time.Duration

	// Prompt receives the callback URL to present to the user. The
	// default logs it.
	Prompt func(callbackURL string)
}

func (o *Options) withDefaults() {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:0"
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.Prompt == nil {
		o.Prompt = func(callbackURL string) {
			log.Info().Str("url", callbackURL).
				Msg("complete Google sign-in in your browser, then it will post back here")
		}
	}
}

// Login listens for the browser callback, exchanges the delivered ID
// token for a credential pair, and shuts the listener down. It returns
// when sign-in completes, the flow times out, or ctx is cancelled.
func Login(ctx context.Context, client *api.Client, opts Options) error {
	opts.withDefaults()

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("starting callback listener: %w", err)
	}

	// buffered so a late second callback never blocks the handler
	tokens := make(chan string, 1)

	plainMux := http.NewServeMux()
	mux := observe.NewMux(plainMux)

	// ID tokens are around a kilobyte; anything much larger is abuse
	limiter := func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, 16<<10)
	}
	middleware := alice.New(limiter)

	mux.Handle("POST /callback", middleware.Then(handleCallback(tokens)))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 20 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("callback listener failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	callbackURL := fmt.Sprintf("http://%s/callback", listener.Addr())
	opts.Prompt(callbackURL)

	timeout := time.NewTimer(opts.Timeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return ErrFlowTimeout
	case idToken := <-tokens:
		return client.LoginWithGoogle(ctx, idToken)
	}
}

func handleCallback(tokens chan<- string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDToken string `json:"id_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" {
			log.Info().Err(err).Msg("callback carried no usable ID token")
			writeJSONError(w, http.StatusBadRequest, "id_token required")
			return
		}

		select {
		case tokens <- body.IDToken:
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintln(w, "Sign-in received. You can return to the terminal.")
		default:
			writeJSONError(w, http.StatusConflict, "sign-in already completed")
		}
	})
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Info().Err(err).Msg("failed to write error response")
	}
}
