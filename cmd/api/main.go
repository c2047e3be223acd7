package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/arodriguezv/gestoram/pkg/amortize"
	"github.com/arodriguezv/gestoram/pkg/ledger"
	"github.com/arodriguezv/gestoram/pkg/models"
	"github.com/arodriguezv/gestoram/pkg/store"
)

// defaultInterestRate is applied when a loan request omits the rate.
var defaultInterestRate = decimal.NewFromInt(10)

const dateLayout = "2006-01-02"

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
}

func NewServer(s store.Storage) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s),
		storage: s,
	}
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, ledger.ErrExceedsBalance),
		errors.Is(err, ledger.ErrLoanClosed),
		errors.Is(err, ledger.ErrLoanHasPayments),
		errors.Is(err, ledger.ErrClientHasLoans):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrWindowExpired),
		errors.Is(err, ledger.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, amortize.ErrInvalidPrincipal),
		errors.Is(err, amortize.ErrInvalidRate),
		errors.Is(err, amortize.ErrInvalidTerm):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func ownerFromRequest(r *http.Request) string {
	return r.URL.Query().Get("owner_id")
}

func (s *Server) createClientHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cedula   string `json:"cedula"`
		FullName string `json:"full_name"`
		OwnerID  string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Cedula == "" || req.FullName == "" || req.OwnerID == "" {
		http.Error(w, "cedula, full_name and owner_id are required", http.StatusBadRequest)
		return
	}

	client, err := s.ledger.RegisterClient(req.Cedula, req.FullName, req.OwnerID, time.Now())
	if err != nil {
		log.Printf("Error registering client: %v\n", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) listClientsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromRequest(r)
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	clients, err := s.ledger.ListClients(ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if clients == nil {
		// Emit [] instead of null for an owner with no clients yet.
		clients = []*models.Client{}
	}

	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) deleteClientHandler(w http.ResponseWriter, r *http.Request) {
	cedula := mux.Vars(r)["cedula"]
	ownerID := ownerFromRequest(r)
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	if err := s.ledger.RemoveClient(cedula, ownerID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type loanRequest struct {
	ClientID     string           `json:"client_id"`
	OwnerID      string           `json:"owner_id"`
	Principal    decimal.Decimal  `json:"principal"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
}

func (req *loanRequest) rate() decimal.Decimal {
	if req.InterestRate == nil {
		return defaultInterestRate
	}
	return *req.InterestRate
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	quote, err := s.ledger.Originate(req.Principal, req.rate(), start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.CreateLoan(req.ClientID, req.OwnerID, req.Principal, req.rate(), start, end)
	if err != nil {
		log.Printf("Error creating loan: %v\n", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromRequest(r)
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	loans, err := s.ledger.ListLoans(ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}

	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	detail, err := s.ledger.GetLoanDetail(loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	ownerID := ownerFromRequest(r)
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	if err := s.ledger.DeleteLoan(loanID, ownerID, time.Now()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, payment, err := s.ledger.ApplyPayment(loanID, req.Amount, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"loan":    loan,
		"payment": payment,
	})
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	detail, err := s.ledger.GetLoanDetail(loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail.Payments)
}

func (s *Server) reversePaymentHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	paymentID, err := uuid.Parse(vars["paymentId"])
	if err != nil {
		http.Error(w, "Invalid payment ID", http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.ReversePayment(loanID, paymentID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/clients", s.listClientsHandler).Methods("GET")
	router.HandleFunc("/clients", s.createClientHandler).Methods("POST")
	router.HandleFunc("/clients/{cedula}", s.deleteClientHandler).Methods("DELETE")

	router.HandleFunc("/quotes", s.quoteHandler).Methods("POST")

	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/payments", s.listPaymentsHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/payments/{paymentId}", s.reversePaymentHandler).Methods("DELETE")

	return router
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	backend := flag.String("backend", "sqlite", "storage backend: sqlite or bolt")
	dbPath := flag.String("db", "gestoram.db", "database file path")
	flag.Parse()

	var (
		storage store.Storage
		err     error
	)
	switch *backend {
	case "sqlite":
		storage, err = store.NewSQLiteStore(*dbPath)
	case "bolt":
		storage, err = store.NewBoltStore(*dbPath)
	default:
		log.Fatalf("Unknown backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", *backend, err)
	}
	defer storage.Close()

	server := NewServer(storage)

	log.Printf("Server starting on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, server.routes()))
}
