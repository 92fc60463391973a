package webdav

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/webdav"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// htmlHook is activated, if the target is a folder and the raw query '?html' is appended to the url.
// Example: https://localhost:8080/pads/available/?html
func htmlHook(w http.ResponseWriter, name string, fs webdav.FileSystem) {
	dir, err := fs.OpenFile(context.TODO(), name, 0, 0)
	if err != nil {
		log.Errorf("%s/htmlHook: '%v': path='%s'", packageName, err, name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer dir.Close()

	ls, err := dir.Readdir(-1)
	if err != nil {
		log.Errorf("%s/htmlHook: '%v': path='%s'", packageName, err, name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	p := message.NewPrinter(language.English)
	for _, v := range ls {
		href := url.PathEscape(v.Name())
		label := html.EscapeString(v.Name())
		if v.IsDir() {
			_, err = fmt.Fprintf(w, "<a href='%s/?html'>%s/</a><br>\n", href, label)
		} else {
			_, err = p.Fprintf(w, "<a href='%s'>%s</a> (%d bytes)<br>\n", href, label, v.Size())
		}
		if err != nil {
			log.Errorf("%s/htmlHook: '%v': path='%s'", packageName, err, name)
			return
		}
	}
}
