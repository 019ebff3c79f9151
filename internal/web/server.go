package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vadiminshakov/ultracore/internal/storage/settlements"
	"github.com/vadiminshakov/ultracore/internal/storage/wallets"
)

const streamPollInterval = 2 * time.Second

type settlementReader interface {
	RowsAfter(after uint64) ([]settlements.Row, error)
}

type transactionReader interface {
	TransactionsAfter(index uint64) []wallets.TransactionRecord
}

// Server exposes the HTML dashboard and SSE streams of settlement rows and
// wallet ledger rows.
type Server struct {
	Addr         string
	Settlements  settlementReader
	Transactions transactionReader
}

// NewServer creates a new dashboard server instance.
func NewServer(addr string, settlementLog settlementReader, transactions transactionReader) *Server {
	return &Server{Addr: addr, Settlements: settlementLog, Transactions: transactions}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/settlements/stream", s.handleSettlementStream)
	mux.HandleFunc("/wallets/transactions/stream", s.handleTransactionStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleSettlementStream(w http.ResponseWriter, r *http.Request) {
	if s.Settlements == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "settlement journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastID := uint64(0)
	sendRows := func() error {
		rows, err := s.Settlements.RowsAfter(lastID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			payload, err := json.Marshal(row)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", row.ID)
			fmt.Fprintf(w, "event: settlement\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastID = row.ID
		}
		return nil
	}

	if err := sendRows(); err != nil {
		http.Error(w, "failed to load settlements", http.StatusInternalServerError)
		log.Printf("settlement stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRows(); err != nil {
				log.Printf("settlement stream poll err: %v", err)
			}
		}
	}
}

func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	if s.Transactions == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "wallet store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendTransactions := func() error {
		for _, rec := range s.Transactions.TransactionsAfter(lastIndex) {
			payload, err := json.Marshal(rec.Transaction)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", rec.Index)
			fmt.Fprintf(w, "event: wallet_transaction\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = rec.Index
		}
		return nil
	}

	if err := sendTransactions(); err != nil {
		http.Error(w, "failed to load wallet transactions", http.StatusInternalServerError)
		log.Printf("wallet transaction stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendTransactions(); err != nil {
				log.Printf("wallet transaction stream poll err: %v", err)
			}
		}
	}
}

// Two-column dashboard: settlements on the left, wallet ledger on the right.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>UltraCore</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Press+Start+2P&family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --ink-soft:#9c9c9c;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1400px, 96vw);
      margin:0 auto;
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:grid;
      grid-template-columns:1fr 1fr;
      gap:2rem;
    }
    header {
      grid-column:1 / -1;
      display:flex;
      justify-content:space-between;
      align-items:center;
      gap:1rem;
    }
    .eyebrow {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.55rem;
      text-transform:uppercase;
      letter-spacing:.2em;
      margin:0;
    }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    .column { display:flex; flex-direction:column; gap:1rem; }
    .column-title {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.15em;
      margin:0;
      padding-bottom:.8rem;
      border-bottom:2px solid var(--ink);
    }
    .feed {
      display:flex;
      flex-direction:column;
      gap:.8rem;
      max-height:calc(100vh - 12rem);
      overflow-y:auto;
    }
    .row-card {
      border:2px solid var(--ink);
      padding:1rem;
      background:#fff;
      box-shadow:4px 4px 0 rgba(0,0,0,.12);
      font-size:.7rem;
      line-height:1.5;
    }
    .row-card .amount { font-weight:700; }
    .row-card .debit { color:#d7263d; }
    .row-card .credit { color:#1b9aaa; }
    .row-card .tag {
      font-size:.55rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      padding:.25rem .5rem;
      border:1px solid var(--ink-soft);
      background:var(--panel);
      margin-left:.4rem;
    }
    .empty-state {
      border:2px dashed var(--ink-soft);
      padding:2rem;
      text-align:center;
      font-size:.75rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      color:var(--ink-mid);
    }
    @media (max-width:800px) {
      #app { grid-template-columns:1fr; }
    }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <p class="eyebrow">ultracore exchange</p>
      <div id="sse-status" class="status">Connecting…</div>
    </header>
    <section class="column">
      <h3 class="column-title">Settlements</h3>
      <div id="settlements" class="feed">
        <div class="empty-state">Waiting for settlements…</div>
      </div>
    </section>
    <section class="column">
      <h3 class="column-title">Wallet ledger</h3>
      <div id="transactions" class="feed">
        <div class="empty-state">Waiting for ledger rows…</div>
      </div>
    </section>
  </div>
<script>
const statusEl = document.getElementById('sse-status');
const settlementsEl = document.getElementById('settlements');
const transactionsEl = document.getElementById('transactions');
const MAX_ROWS = 100;

function clearEmptyState(container){
  const empty = container.querySelector('.empty-state');
  if(empty){ empty.remove(); }
}

function pushCard(container, card){
  clearEmptyState(container);
  container.insertBefore(card, container.firstChild);
  while(container.children.length > MAX_ROWS){
    container.removeChild(container.lastChild);
  }
}

function settlementCard(row){
  const card = document.createElement('div');
  card.className = 'row-card';
  card.innerHTML =
    '<span class="amount">' + row.asset_amount + '</span> assets' +
    '<span class="tag">#' + row.id + '</span>' +
    '<br/>order ' + row.order_id + ' &harr; order ' + row.matched_order_id;
  return card;
}

function transactionCard(tx){
  const card = document.createElement('div');
  card.className = 'row-card';
  const cls = parseFloat(tx.asset_amount) < 0 ? 'debit' : 'credit';
  const committed = tx.is_committed ? 'committed' : 'pending';
  card.innerHTML =
    '<span class="amount ' + cls + '">' + tx.asset_amount + '</span>' +
    '<span class="tag">' + committed + '</span>' +
    '<br/>user ' + tx.user_id + ', wallet ' + tx.wallet_id +
    ', balance ' + tx.balance;
  return card;
}

function connect(path, eventName, makeCard, container){
  const source = new EventSource(path);
  statusEl.textContent = 'Status: receiving data';
  source.addEventListener(eventName, (event) => {
    try{
      pushCard(container, makeCard(JSON.parse(event.data)));
    }catch(err){
      console.error('payload parse', err);
    }
  });
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(() => connect(path, eventName, makeCard, container), 2000);
  });
}

connect('/settlements/stream', 'settlement', settlementCard, settlementsEl);
connect('/wallets/transactions/stream', 'wallet_transaction', transactionCard, transactionsEl);
</script>
</body>
</html>`
