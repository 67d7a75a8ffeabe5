package httpapi

import (
	"errors"
	"net/http"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/shared/httpx"
)

// registerResource mounts the /api/{resource} contract that remote mode
// consumes.
func registerResource[T models.Record[T]](mux *http.ServeMux, svc *resource.Service[T]) {
	base := "/api/" + svc.Resource()

	mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
		res := svc.GetAll(r.Context())
		if res.StoreErr != nil && len(res.Value) == 0 {
			writeStoreError(w, r, res.StoreErr)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res.Value)
	})

	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		res := svc.GetByID(r.Context(), r.PathValue("id"))
		if !res.Found {
			httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", svc.Resource()+" record not found", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res.Value)
	})

	mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		var record T
		if err := httpx.DecodeJSON(w, r, &record); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
			return
		}
		res := svc.Create(r.Context(), record)
		if res.StoreErr != nil {
			writeStoreError(w, r, res.StoreErr)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, res.Value)
	})

	mux.HandleFunc("POST "+base+"/seed", func(w http.ResponseWriter, r *http.Request) {
		var records []T
		if err := httpx.DecodeJSON(w, r, &records); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
			return
		}
		res := svc.Seed(r.Context(), records)
		if res.StoreErr != nil {
			writeStoreError(w, r, res.StoreErr)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"seeded": res.Value})
	})

	mux.HandleFunc("PATCH "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch resource.Patch
		if err := httpx.DecodeJSON(w, r, &patch); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
			return
		}
		res := svc.Update(r.Context(), r.PathValue("id"), patch)
		if errors.Is(res.StoreErr, resource.ErrInvalidPatch) {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", res.StoreErr.Error(), nil)
			return
		}
		if !res.Found {
			httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", svc.Resource()+" record not found", nil)
			return
		}
		if res.StoreErr != nil {
			writeStoreError(w, r, res.StoreErr)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res.Value)
	})

	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		res := svc.Delete(r.Context(), r.PathValue("id"))
		if res.StoreErr != nil {
			writeStoreError(w, r, res.StoreErr)
			return
		}
		if !res.Value {
			httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", svc.Resource()+" record not found", nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
