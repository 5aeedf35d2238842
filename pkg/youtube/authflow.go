package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"

	errs "vodarchiver/pkg/errors"
)

// InteractiveAuth runs the installed-app OAuth flow: it starts a loopback
// listener, prints the consent URL, exchanges the returned code, and saves
// the token for the daemon to use. Meant for the 'auth youtube' subcommand,
// never for the poll loop.
func (u *Uploader) InteractiveAuth(ctx context.Context) error {
	cfg, err := u.oauthConfig()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err)
	}
	defer listener.Close()

	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", r.URL.Query().Get("error"))
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return errs.Wrap(errs.ErrorTypeAuth, err)
	case <-ctx.Done():
		return ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err)
	}

	if err := saveToken(u.tokenFile, token); err != nil {
		return errs.Wrap(errs.ErrorTypeFile, err)
	}

	u.logger.InfoWithFields("YouTube token saved", map[string]interface{}{
		"path": u.tokenFile,
	})

	return nil
}
