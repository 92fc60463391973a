package webdav

/*
	IN THIS FILE: run the server
		- open listener
		- start server
		- config TLS
*/

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Serve accepts incoming HTTP (or HTTPS with useTLS) connections on lAddr
// and serves the handler (@see NewHandler).
//
// If the port in the address parameter is empty or "0", as in
// "127.0.0.1:" or "[::1]:0", a port number is automatically chosen.
// For TLS, the certFile should be the concatenation of the server's
// certificate, any intermediates, and the CA's certificate.
//
// Serve always returns a non-nil error.
func Serve(lAddr string, useTLS bool, certFile, certKeyFile string, handler http.Handler) error {
	listener, err := net.Listen("tcp", lAddr)
	if err != nil {
		log.Errorf("%s/Serve: listener: %v: lAddr='%s'", packageName, err, lAddr)
		return err
	}
	log.Infof("%s/Serve: listening on %s", packageName, listener.Addr().String())

	// server hardening
	// https://blog.cloudflare.com/exposing-go-on-the-internet/
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		Handler:           handler,
	}

	if !useTLS {
		log.Infof("%s/Serve: start ...", packageName)
		err = srv.Serve(listener)
	} else {
		log.Infof("%s/Serve: start with TLS ...", packageName)
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12, // disable TLS 1.0 and TLS 1.1
		}
		err = srv.ServeTLS(listener, certFile, certKeyFile)
	}

	log.Errorf("%s/Serve: %v", packageName, err)
	return err
}
