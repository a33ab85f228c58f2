package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/examprep/examprep/internal/storage"
)

// GET /assets/*
// Serves question diagrams and exam card images referenced by imageUrl
// fields. Keys resolve inside the asset directory only.
func AssetHandler(store storage.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		rc, err := store.Open(key)
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			writeError(w, http.StatusBadRequest, "invalid asset path")
			return
		case errors.Is(err, os.ErrNotExist):
			writeError(w, http.StatusNotFound, "asset not found")
			return
		case err != nil:
			writeStoreError(w, err)
			return
		}
		defer rc.Close()

		if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = io.Copy(w, rc)
	}
}

// PUT /assets/*
// Stores the request body under the key; overwrites an existing asset.
func UploadAssetHandler(store storage.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		err := store.Put(key, r.Body)
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			writeError(w, http.StatusBadRequest, "invalid asset path")
			return
		case err != nil:
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
