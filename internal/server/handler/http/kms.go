// Package http provides HTTP handlers for the KMS gateway: unlock, lock,
// encrypt, decrypt, health and status.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fishkms/internal/cryptox"
	"fishkms/internal/models"
	"fishkms/internal/service"
)

// KMSService defines the interface for KMS operations required by the HTTP
// handlers.
type KMSService interface {
	// Unlock runs the liveness gate and grants an unlock window.
	Unlock(ctx context.Context, ownerID string) (time.Time, error)
	// Lock revokes the owner's unlock window.
	Lock(ctx context.Context, ownerID string)
	// Encrypt returns base64 ciphertext and nonce for the plaintext.
	Encrypt(ctx context.Context, ownerID, plaintext string) (string, string, error)
	// Decrypt returns the plaintext for a base64 ciphertext/nonce pair.
	Decrypt(ctx context.Context, ownerID, ciphertextB64, nonceB64 string) (string, error)
	// Health reports the entropy subsystem state.
	Health(ctx context.Context) (service.HealthInfo, error)
	// Status reports aggregate counts.
	Status(ctx context.Context) (service.StatusInfo, error)
}

// KMSHandler handles HTTP requests for the KMS operations.
type KMSHandler struct {
	// Service performs the underlying KMS operations.
	Service KMSService
}

// UnlockRequest represents the JSON payload for unlock and lock.
type UnlockRequest struct {
	OwnerID string `json:"ownerId"`
}

// EncryptRequest represents the JSON payload for encryption. Plaintext is a
// pointer so an explicitly empty string is distinguishable from a missing
// field.
type EncryptRequest struct {
	OwnerID   string  `json:"ownerId"`
	Plaintext *string `json:"plaintext"`
}

// DecryptRequest represents the JSON payload for decryption.
type DecryptRequest struct {
	OwnerID    string `json:"ownerId"`
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

// Unlock handles POST /unlock. A hard sampling failure maps to 503; a
// liveness-gate rejection maps to 403.
func (h *KMSHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	until, err := h.Service.Unlock(r.Context(), req.OwnerID)
	switch {
	case errors.Is(err, service.ErrEntropy):
		http.Error(w, "entropy sampling failed", http.StatusServiceUnavailable)
		return
	case errors.Is(err, service.ErrLocked):
		http.Error(w, "liveness check rejected", http.StatusForbidden)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"ok":            true,
		"unlockedUntil": until.Format(time.RFC3339),
	})
}

// Lock handles POST /lock. Locking is unconditional and always succeeds.
func (h *KMSHandler) Lock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.Service.Lock(r.Context(), req.OwnerID)
	writeJSON(w, map[string]any{"ok": true})
}

// Encrypt handles POST /encrypt. Encryption is never gated; the empty string
// is a valid plaintext.
func (h *KMSHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" || req.Plaintext == nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ciphertext, nonce, err := h.Service.Encrypt(r.Context(), req.OwnerID, *req.Plaintext)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"ciphertext": ciphertext,
		"nonce":      nonce,
	})
}

// Decrypt handles POST /decrypt. A locked owner maps to 403 so the caller
// can prompt for an unlock; every crypto failure maps to one generic 400.
func (h *KMSHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.OwnerID == "" || req.Ciphertext == "" || req.Nonce == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	plaintext, err := h.Service.Decrypt(r.Context(), req.OwnerID, req.Ciphertext, req.Nonce)
	switch {
	case errors.Is(err, service.ErrLocked):
		http.Error(w, "vault is locked, unlock first", http.StatusForbidden)
		return
	case errors.Is(err, cryptox.ErrDecrypt):
		http.Error(w, "decryption failed", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"plaintext": plaintext})
}

// Health handles GET /health. The motion score is reported only in camera
// mode, and only when there is one.
func (h *KMSHandler) Health(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.Health(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"ok":            true,
		"mode":          info.Mode,
		"entropyStatus": info.Status,
	}
	if info.Mode == models.ModeCamera && info.Score > 0 {
		resp["motionScore"] = info.Score
	}
	writeJSON(w, resp)
}

// Status handles GET /status.
func (h *KMSHandler) Status(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.Status(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"unlockedCount": info.UnlockedCount,
		"totalOwners":   info.TotalOwners,
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
