package webdav

/*
	IN THIS FILE: JSON API
		GET    /api/vault/status
		POST   /api/vault/clear
		GET    /api/pads
		POST   /api/pads/generate        {"size": <MiB>, "count": <n>}
		POST   /api/pads/upload?id=<id>  body: pad bytes
		POST   /api/pads/take_segment    {"pad_id": "<optional>", "length": <n>}
		POST   /api/pads/mark_used       {"pad_id": "<id>", "start": <n>, "end": <n>}
		GET    /api/pads/<id>/download
		DELETE /api/pads/<id>
*/

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/SchnorcherSepp/otpvault/core"
	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// _API runs vault operations for HTTP requests.
// Every request loads the state file, and all requests on a vault are serialized by the locker.
type _API struct {
	layout   vault.Layout
	locker   *core.Locker
	onChange func()
}

func newAPI(root string, locker *core.Locker, onChange func()) *_API {
	if onChange == nil {
		onChange = func() {}
	}
	return &_API{
		layout:   vault.NewLayout(root),
		locker:   locker,
		onChange: onChange,
	}
}

type generateRequest struct {
	Size  int64 `json:"size"` // MiB
	Count int   `json:"count"`
}

type takeSegmentRequest struct {
	PadID  string `json:"pad_id"`
	Length int64  `json:"length"`
}

type markUsedRequest struct {
	PadID string `json:"pad_id"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// ServeHTTP routes the API requests.
func (a *_API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix), "/")

	switch {
	case route == "vault/status" && r.Method == http.MethodGet:
		a.withState(w, false, func(st *vault.State) (int, interface{}, error) {
			return http.StatusOK, core.Status(a.layout, st), nil
		})

	case route == "vault/clear" && r.Method == http.MethodPost:
		a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
			n, err := core.ClearVault(a.layout, st)
			return http.StatusOK, map[string]int{"removed": n}, err
		})

	case route == "pads" && r.Method == http.MethodGet:
		a.withState(w, false, func(st *vault.State) (int, interface{}, error) {
			pads := make([]vault.Pad, 0, len(st.Pads))
			for _, id := range st.SortedIDs() {
				p, _ := st.Pad(id)
				pads = append(pads, p)
			}
			return http.StatusOK, pads, nil
		})

	case route == "pads/generate" && r.Method == http.MethodPost:
		var req generateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
			pads, err := core.GeneratePads(a.layout, st, req.Size*core.MiB, req.Count)
			ids := make([]string, 0, len(pads))
			for _, p := range pads {
				ids = append(ids, p.ID)
			}
			return http.StatusCreated, map[string][]string{"pad_ids": ids}, err
		})

	case route == "pads/upload" && r.Method == http.MethodPost:
		a.upload(w, r)

	case route == "pads/take_segment" && r.Method == http.MethodPost:
		var req takeSegmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
			seg, err := core.TakeSegment(a.layout, st, core.ExplicitPad(req.PadID), req.Length)
			return http.StatusOK, seg, err
		})

	case route == "pads/mark_used" && r.Method == http.MethodPost:
		var req markUsedRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
			err := core.MarkUsed(a.layout, st, req.PadID, req.Start, req.End)
			return http.StatusOK, map[string]string{"message": "segment marked as used"}, err
		})

	case strings.HasPrefix(route, "pads/") && strings.HasSuffix(route, "/download") && r.Method == http.MethodGet:
		a.download(w, r, strings.TrimSuffix(strings.TrimPrefix(route, "pads/"), "/download"))

	case strings.HasPrefix(route, "pads/") && strings.Count(route, "/") == 1 && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(route, "pads/")
		a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
			err := core.DeletePad(a.layout, st, id)
			return http.StatusOK, map[string]string{"message": "pad deleted"}, err
		})

	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown route: %s %s", r.Method, r.URL.Path))
	}
}

// withState loads the state under the vault lock and runs fn.
func (a *_API) withState(w http.ResponseWriter, changes bool, fn func(st *vault.State) (int, interface{}, error)) {
	unlock := a.locker.Lock(a.layout.Root)
	st, err := vault.Load(a.layout.Root)
	var code int
	var body interface{}
	if err == nil {
		code, body, err = fn(st)
	}
	unlock()

	if changes {
		a.onChange()
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, code, body)
}

// upload imports the request body as a new pad.
func (a *_API) upload(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" || strings.ContainsAny(id, `/\`) {
		writeError(w, http.StatusBadRequest, errors.New("query parameter 'id' is missing or invalid"))
		return
	}

	// body -> temp file (outside of the lock)
	tmp, err := os.CreateTemp("", "upload-*"+vault.PadExt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.Remove(tmp.Name())
	_, err = io.Copy(tmp, http.MaxBytesReader(w, r.Body, maxUploadSize))
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a.withState(w, true, func(st *vault.State) (int, interface{}, error) {
		p, err := core.ImportPad(a.layout, st, tmp.Name(), id)
		return http.StatusCreated, p, err
	})
}

// download sends the backing file of a pad.
func (a *_API) download(w http.ResponseWriter, r *http.Request, id string) {
	unlock := a.locker.Lock(a.layout.Root)
	st, err := vault.Load(a.layout.Root)
	var p vault.Pad
	if err == nil {
		p, err = st.Pad(id)
	}
	var path string
	if err == nil {
		path, err = a.layout.Locate(p)
	}
	var fh *os.File
	if err == nil {
		fh, err = os.Open(path)
	}
	unlock()
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	defer fh.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(p.FileName)))
	info, err := fh.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	http.ServeContent(w, r, filepath.Base(p.FileName), info.ModTime(), fh)
}

// ---------  Helper  ----------------------------------------------------------------------------------------------- //

// statusOf maps vault errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrPadNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPadExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoSuitablePad), errors.Is(err, core.ErrInsufficientSpace),
		errors.Is(err, core.ErrPadFullyUsed), errors.Is(err, core.ErrInvalidLength),
		errors.Is(err, vault.ErrSegmentOverlap), errors.Is(err, vault.ErrSegmentOutOfBounds),
		errors.Is(err, vault.ErrInvalidSegment), errors.Is(err, enc.ErrInputTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("%s/writeJSON: %v", packageName, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		log.Errorf("%s/api: %v", packageName, err)
	} else {
		log.Debugf("%s/api: %v", packageName, err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
