package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const callbackPath = "/callback"

type callbackResult struct {
	code string
	err  error
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newCallbackRouter(state string, results chan<- callbackResult) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET(callbackPath, func(c *gin.Context) {
		if msg := c.Query("error"); msg != "" {
			desc := c.Query("error_description")
			deliver(results, callbackResult{err: fmt.Errorf("%w: %s %s", ErrAuthorization, msg, desc)})
			c.String(http.StatusBadRequest, "Authorization failed: %s", msg)
			return
		}
		if c.Query("state") != state {
			c.String(http.StatusBadRequest, "Invalid state parameter")
			return
		}
		code := c.Query("code")
		if code == "" {
			deliver(results, callbackResult{err: fmt.Errorf("%w: no code in callback", ErrAuthorization)})
			c.String(http.StatusBadRequest, "Missing authorization code")
			return
		}
		deliver(results, callbackResult{code: code})
		c.String(http.StatusOK, "Authorization complete. You can close this window.")
	})
	return router
}

func deliver(results chan<- callbackResult, r callbackResult) {
	select {
	case results <- r:
	default:
	}
}

// loopbackLogin runs the authorization-code flow with PKCE against a local callback server.
func loopbackLogin(ctx context.Context, base *oauth2.Config, port int, prompt func(string), opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	conf := *base
	conf.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           newCallbackRouter(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: err})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authOpts := append([]oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)}, opts...)
	prompt(conf.AuthCodeURL(state, authOpts...))
	log.Debug("Waiting for authorization callback", "redirect", conf.RedirectURL)

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-results:
	}
	if result.err != nil {
		return nil, result.err
	}

	token, err := conf.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}
