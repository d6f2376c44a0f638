// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/bot"
	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
)

const (
	defaultRecentLimit = 20
	maxListLimit       = 500
)

// StatusSource отдаёт срез состояния исполнителя.
type StatusSource interface {
	Snapshot(limit int) bot.Snapshot
}

// TradeJournal - чтение журнала сделок.
type TradeJournal interface {
	ListTrades(ctx context.Context, wallet string, limit, offset int) ([]*models.Trade, error)
	SumFees(ctx context.Context, wallet string) (uint64, error)
}

// Server - HTTP API мониторинга, только для чтения.
type Server struct {
	status  StatusSource
	journal TradeJournal
	wallet  string
	started time.Time
	srv     *http.Server
	logger  *zap.Logger
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status string       `json:"status"`
	Wallet string       `json:"wallet"`
	Uptime string       `json:"uptime"`
	Trader bot.Snapshot `json:"trader"`
}

// TradesResponse is the JSON response for /trades endpoint.
type TradesResponse struct {
	Trades            []*models.Trade `json:"trades"`
	TotalFeesLamports uint64          `json:"total_fees_lamports"`
}

// NewServer создаёт сервер. journal может быть nil, тогда /trades недоступен.
func NewServer(addr string, status StatusSource, journal TradeJournal, wallet string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		status:  status,
		journal: journal,
		wallet:  wallet,
		started: time.Now(),
		logger:  logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler возвращает корневой обработчик.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run слушает адрес до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultRecentLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := s.status.Snapshot(limit)
	state := "running"
	if snap.Halted {
		state = "halted"
	}
	s.writeJSON(w, StatusResponse{
		Status: state,
		Wallet: s.wallet,
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		Trader: snap,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "trade journal disabled", http.StatusNotFound)
		return
	}
	limit, err := intParam(r, "limit", defaultRecentLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := s.journal.ListTrades(r.Context(), s.wallet, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	fees, err := s.journal.SumFees(r.Context(), s.wallet)
	if err != nil {
		s.logger.Error("Failed to sum fees", zap.Error(err))
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, TradesResponse{Trades: trades, TotalFeesLamports: fees})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name)
	}
	// Пустая страница по limit=0 вводит в заблуждение
	if name == "limit" && (v == 0 || v > maxListLimit) {
		return 0, errors.New("limit must be within 1.." + strconv.Itoa(maxListLimit))
	}
	return v, nil
}
