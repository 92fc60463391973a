package webdav

/*
	IN THIS FILE: HTTP Handler
		- Authentication
		- Authorization
		- routing: JSON API or read-only WebDAV
*/

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/SchnorcherSepp/otpvault/core"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/webdav"
)

var _ http.Handler = (*_Handler)(nil)

// _Handler serves a vault to authenticated users.
type _Handler struct {
	webdavHandler *webdav.Handler
	api           http.Handler
	users         *_Users
}

// NewHandler return a http.Handler with authentication and authorization for a vault.
// The vault is served read-only with WebDAV (@see NewFileSystem), changes are
// only possible with the JSON API under /api/.
func NewHandler(root string, locker *core.Locker, userFile string, updateInterval int) http.Handler {
	if locker == nil {
		locker = core.NewLocker()
	}
	fs := newFileSystem(root, locker, updateInterval)
	return newHandler(fs, newAPI(root, locker, func() { fs.Reload() }), userFile)
}

func newHandler(fs webdav.FileSystem, api http.Handler, userFile string) *_Handler {
	return &_Handler{
		webdavHandler: &webdav.Handler{
			FileSystem: fs,
			LockSystem: webdav.NewMemLS(),
			Logger:     requestLogger,
		},
		api:   api,
		users: initUsers(userFile),
	}
}

//--------------------------------------------------------------------------------------------------------------------//

// requestLogger is called for all WebDAV requests and logs the errors.
func requestLogger(r *http.Request, err error) {
	if err == nil {
		return
	}
	if r == nil {
		log.Warnf("%s/requestLogger: '%v': http request is nil", packageName, err)
		return
	}

	entry := log.WithFields(log.Fields{
		"path":   r.RequestURI,
		"client": r.RemoteAddr,
		"method": r.Method,
	})
	if errors.Is(err, os.ErrNotExist) {
		entry.Debugf("%s/requestLogger: %v", packageName, err)
		return
	}
	entry.Warnf("%s/requestLogger: %v", packageName, err)
}

// ServeHTTP checks the user and forwards the request to the API or the WebDAV handler.
func (h *_Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	// Authentication
	//---------------------------------------------------------------------------------------------
	w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)

	username, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	user, ok := h.users.Get(username)
	if !ok || user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		log.Warnf("%s/ServeHTTP: wrong password for user '%s': %v", packageName, username, err)
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	// Authorization
	//---------------------------------------------------------------------------------------------
	if !user.Allowed(r.URL.Path) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// API (may change the vault)
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		h.api.ServeHTTP(w, r)
		return
	}

	// WebDAV: WHITELIST of read-only methods
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "PROPFIND", "LOCK", "UNLOCK":
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// GET on a folder: html view or PROPFIND
	if r.Method == http.MethodGet {
		info, err := h.webdavHandler.FileSystem.Stat(context.TODO(), r.URL.Path)
		if err == nil && info.IsDir() {
			if r.URL.RawQuery == "html" {
				htmlHook(w, r.URL.Path, h.webdavHandler.FileSystem)
				return
			}
			r.Method = "PROPFIND"
			if r.Header.Get("Depth") == "" {
				r.Header.Add("Depth", "1")
			}
		}
	}

	h.webdavHandler.ServeHTTP(w, r)
}
