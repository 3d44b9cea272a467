package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Response is the single outcome of a handler. Handlers return exactly
// one Response and the adapter writes it, so a request is always answered
// and never answered twice.
type Response struct {
	status int
	body   interface{}
	text   string
	err    error
}

// JSON responds with status and body encoded as JSON.
func JSON(status int, body interface{}) Response {
	return Response{status: status, body: body}
}

// Text responds with status and a plain-text body.
func Text(status int, text string) Response {
	return Response{status: status, text: text}
}

// Status responds with status and an empty body.
func Status(status int) Response {
	return Response{status: status}
}

// Fail responds with the status mapped from err's kind.
func Fail(err error) Response {
	if err == nil {
		err = apperr.Internal("handler", nil)
	}
	return Response{status: apperr.HTTPStatus(err), err: err}
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandlerFunc is an HTTP handler that reports its outcome as a Response.
type HandlerFunc func(r *http.Request) Response

// Adapter turns HandlerFuncs into http.HandlerFuncs and logs failures.
type Adapter struct {
	log *slog.Logger
}

func NewAdapter(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{log: log.With("module", "handlers")}
}

// Handle wraps fn. op names the operation in failure logs.
func (a *Adapter) Handle(op string, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.write(w, r, op, fn(r))
	}
}

func (a *Adapter) write(w http.ResponseWriter, r *http.Request, op string, res Response) {
	if res.err != nil {
		a.log.Log(r.Context(), failureLevel(res.status), "request failed",
			"op", op,
			"kind", apperr.KindOf(res.err).String(),
			"status", res.status,
			"request_id", chimw.GetReqID(r.Context()),
			"error", res.err,
		)
		if res.status == http.StatusForbidden {
			http.Error(w, apperr.PublicMessage(res.err), http.StatusForbidden)
			return
		}
		writeJSON(w, res.status, errorBody{Success: false, Message: apperr.PublicMessage(res.err)})
		return
	}

	switch {
	case res.body != nil:
		writeJSON(w, res.status, res.body)
	case res.text != "":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(res.status)
		_, _ = w.Write([]byte(res.text))
	default:
		w.WriteHeader(res.status)
	}
}

func failureLevel(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads r's body into v. Any decoding failure is a validation
// error.
func decodeJSON(r *http.Request, op string, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation(op, "Invalid request body")
	}
	return nil
}
