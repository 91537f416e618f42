package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"omnia/internal/ledger"
)

type Server struct {
	svc  *ledger.Service
	ping func(ctx context.Context) error
}

func NewServer(svc *ledger.Service, ping func(ctx context.Context) error) *Server {
	return &Server{svc: svc, ping: ping}
}

type createAccountRequest struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type transferResponse struct {
	TransferID string    `json:"transfer_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var body createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := s.svc.CreateAccount(r.Context(), body.ID, body.Balance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{ID: a.ID, Balance: a.Balance})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	a, err := s.svc.Account(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{ID: a.ID, Balance: a.Balance})
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	idemKey := r.Header.Get("X-Idempotency-Key")
	tr, err := s.svc.Transfer(r.Context(), body.From, body.To, body.Amount, idemKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{
		TransferID: tr.ID,
		From:       tr.From,
		To:         tr.To,
		Amount:     tr.Amount,
		CreatedAt:  tr.CreatedAt,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAccountExists), errors.Is(err, ledger.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
