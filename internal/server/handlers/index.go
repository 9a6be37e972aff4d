package handlers

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var indexPage []byte

// IndexHandler serves the domain check form.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexPage)
}
