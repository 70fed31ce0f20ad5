package aggregation

import (
	"context"
	"sync"

	"console/config"
	"console/metrics"
	"console/schemas"
	"console/store"

	"go.uber.org/zap"
)

type foldEventKind int

const (
	evSnapshot foldEventKind = iota
	evDegraded
	evRecovered
	evScope
)

type foldEvent struct {
	kind      foldEventKind
	partnerID string
	snapshot  []schemas.Lead
	scope     map[string]bool
	filter    Filter
	cause     error
}

// Multiplexer é o dono do conjunto de streams implicado pelo escopo atual.
// Snapshots chegam concorrentes de N goroutines, mas o fold é escritor
// único: um loop consome o canal de eventos e é o único que toca o
// Aggregator. Sem isso, dois callbacks de parceiros diferentes disputando a
// mesma lista perdem atualização — exatamente o bug que esse desenho evita.
type Multiplexer struct {
	store store.Store
	cfg   config.AggregationConfig
	log   *zap.Logger
	met   *metrics.Metrics

	ctx       context.Context
	cancelAll context.CancelFunc
	events    chan foldEvent
	foldDone  chan struct{}

	agg *Aggregator

	// scopeMu serializa SetScope/Close entre si; mu protege o estado
	// compartilhado de curta duração (mapa de streams, visão publicada,
	// callbacks).
	scopeMu   sync.Mutex
	mu        sync.Mutex
	streams   map[string]*partnerStream
	view      schemas.MergedView
	callbacks []func(schemas.MergedView)
	closed    bool
}

func NewMultiplexer(st store.Store, cfg config.AggregationConfig, log *zap.Logger, met *metrics.Metrics) *Multiplexer {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Multiplexer{
		store:     st,
		cfg:       cfg,
		log:       log,
		met:       met,
		ctx:       ctx,
		cancelAll: cancel,
		events:    make(chan foldEvent, cfg.FoldBufferSize),
		foldDone:  make(chan struct{}),
		agg:       NewAggregator(),
		streams:   make(map[string]*partnerStream),
	}
	go m.foldLoop()
	return m
}

func (m *Multiplexer) push(ctx context.Context, ev foldEvent) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

// foldLoop é a seção crítica única da visão. Todo evento — snapshot, queda,
// recuperação, saída de escopo, troca de filtro — passa por aqui, em ordem
// de chegada por parceiro.
func (m *Multiplexer) foldLoop() {
	defer close(m.foldDone)

	scope := map[string]bool{}
	filter := Filter{}
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			switch ev.kind {
			case evSnapshot:
				// Snapshot atrasado de um parceiro que já saiu do escopo
				// não pode ressuscitar a run dele.
				if !scope[ev.partnerID] {
					continue
				}
				m.agg.Fold(ev.partnerID, ev.snapshot)
				m.agg.SetDegraded(ev.partnerID, false)
				m.met.ViewFolds.Inc()
			case evDegraded:
				if !scope[ev.partnerID] {
					continue
				}
				if !m.agg.IsDegraded(ev.partnerID) {
					m.met.StreamDegradations.WithLabelValues(ev.partnerID).Inc()
					m.log.Warn("parceiro degradado na visão",
						zap.String("partner_id", ev.partnerID), zap.Error(ev.cause))
				}
				m.agg.SetDegraded(ev.partnerID, true)
			case evRecovered:
				if !scope[ev.partnerID] {
					continue
				}
				if m.agg.IsDegraded(ev.partnerID) {
					m.met.StreamRecoveries.WithLabelValues(ev.partnerID).Inc()
				}
				m.agg.SetDegraded(ev.partnerID, false)
			case evScope:
				scope = ev.scope
				filter = ev.filter
				m.agg.Retain(scope)
			}
			m.publish(filter)
		}
	}
}

func (m *Multiplexer) publish(filter Filter) {
	view := m.agg.View(filter)

	m.mu.Lock()
	m.view = view
	callbacks := make([]func(schemas.MergedView), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(view)
	}
}

// SetScope faz o diff contra os streams abertos: abre só os parceiros que
// entraram, fecha só os que saíram, não mexe no resto. O custo acompanha o
// tamanho do delta, não do escopo. O evento de escopo entra na fila antes
// dos streams novos abrirem, então nenhum snapshot deles chega fora de
// escopo.
func (m *Multiplexer) SetScope(partnerIDs []string, filter Filter) {
	m.scopeMu.Lock()
	defer m.scopeMu.Unlock()

	wanted := make(map[string]bool, len(partnerIDs))
	for _, id := range partnerIDs {
		wanted[id] = true
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	for partnerID, ps := range m.streams {
		if !wanted[partnerID] {
			ps.cancel()
			delete(m.streams, partnerID)
		}
	}
	m.mu.Unlock()

	m.push(m.ctx, foldEvent{kind: evScope, scope: wanted, filter: filter})

	m.mu.Lock()
	if !m.closed {
		for partnerID := range wanted {
			if _, open := m.streams[partnerID]; !open {
				m.streams[partnerID] = m.openStream(partnerID)
			}
		}
	}
	m.mu.Unlock()
}

func (m *Multiplexer) CurrentView() schemas.MergedView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *Multiplexer) OnUpdate(cb func(schemas.MergedView)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Close derruba todos os streams e o loop de fold. Nenhum stream sobrevive
// ao multiplexer.
func (m *Multiplexer) Close() {
	m.scopeMu.Lock()
	defer m.scopeMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	streams := make([]*partnerStream, 0, len(m.streams))
	for _, ps := range m.streams {
		streams = append(streams, ps)
	}
	m.streams = make(map[string]*partnerStream)
	m.mu.Unlock()

	m.cancelAll()
	for _, ps := range streams {
		<-ps.done
	}
	<-m.foldDone
}
