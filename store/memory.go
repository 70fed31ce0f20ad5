package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory é o dublê de testes do Store: mesmo contrato, estado em memória e
// ganchos de injeção de falha. Os testes do core usam ele no lugar de
// fixtures geradas em runtime.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	subs        map[string][]*memorySub
	seq         int

	failWrites       map[string]error
	failWritesOnce   map[string]error
	failSubscribes   map[string]error
	atomicImpossible bool
}

type memorySub struct {
	collection string
	query      Query
	ch         chan Snapshot
	closed     bool
}

func NewMemory() *Memory {
	return &Memory{
		collections:    make(map[string]map[string]Document),
		subs:           make(map[string][]*memorySub),
		failWrites:     make(map[string]error),
		failWritesOnce: make(map[string]error),
		failSubscribes: make(map[string]error),
	}
}

// Put insere ou substitui um documento e notifica assinantes. É o jeito dos
// testes simularem o app do parceiro escrevendo na partição dele.
func (m *Memory) Put(collection, id string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := doc.Clone()
	stored["_id"] = id
	m.ensureCollection(collection)[id] = stored
	m.notifyLocked(collection)
}

// Remove apaga um documento (sem erro quando ausente) e notifica assinantes.
func (m *Memory) Remove(collection, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ensureCollection(collection), id)
	m.notifyLocked(collection)
}

// FailWrite injeta erro em escritas. Aceita um caminho exato ou só o nome
// da coleção — útil quando o id do documento é gerado na hora da escrita.
func (m *Memory) FailWrite(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites[path] = err
}

// FailWriteOnce injeta um erro consumido na primeira escrita que o tocar; a
// tentativa seguinte passa. Serve para falhas transitórias, como um
// conflito que some na repetição. Aceita caminho exato ou coleção.
func (m *Memory) FailWriteOnce(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWritesOnce[path] = err
}

func (m *Memory) takeFailOnceLocked(key string) error {
	err, ok := m.failWritesOnce[key]
	if ok {
		delete(m.failWritesOnce, key)
	}
	return err
}

// FailNextSubscribe faz as próximas tentativas de assinatura da coleção
// falharem até ClearSubscribeFailure.
func (m *Memory) FailNextSubscribe(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSubscribes[collection] = err
}

func (m *Memory) ClearSubscribeFailure(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failSubscribes, collection)
}

// KillSubscriptions derruba as assinaturas ativas da coleção, como se o
// stream tivesse caído do lado do banco.
func (m *Memory) KillSubscriptions(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[collection] {
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	delete(m.subs, collection)
}

// SetAtomicImpossible faz WriteAtomic multi-documento devolver
// ErrAtomicUnsupported, forçando o caminho de rollback compensatório.
func (m *Memory) SetAtomicImpossible(impossible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atomicImpossible = impossible
}

// Docs devolve uma cópia da coleção, para os testes inspecionarem estado.
func (m *Memory) Docs(collection string) []Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := []Document{}
	for _, doc := range m.collections[collection] {
		docs = append(docs, doc.Clone())
	}
	return docs
}

func (m *Memory) ensureCollection(collection string) map[string]Document {
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]Document)
	}
	return m.collections[collection]
}

func (m *Memory) snapshotLocked(collection string, query Query) Snapshot {
	snapshot := Snapshot{}
	for _, doc := range m.collections[collection] {
		if !query.UpdatedAfter.IsZero() {
			updated, ok := doc["last_updated"].(time.Time)
			if !ok || updated.Before(query.UpdatedAfter) {
				continue
			}
		}
		snapshot = append(snapshot, doc.Clone())
	}

	slices.SortFunc(snapshot, func(a, b Document) int {
		updatedA, _ := a["last_updated"].(time.Time)
		updatedB, _ := b["last_updated"].(time.Time)
		if !updatedA.Equal(updatedB) {
			return updatedB.Compare(updatedA)
		}
		idA, _ := a["_id"].(string)
		idB, _ := b["_id"].(string)
		return cmp.Compare(idA, idB)
	})

	if query.Limit > 0 && len(snapshot) > query.Limit {
		snapshot = snapshot[:query.Limit]
	}
	return snapshot
}

func (m *Memory) notifyLocked(collection string) {
	for _, sub := range m.subs[collection] {
		if sub.closed {
			continue
		}
		snapshot := m.snapshotLocked(collection, sub.query)
		// Canal com buffer 1: snapshot pendente é substituído pelo mais
		// novo, nunca bloqueia o escritor.
		select {
		case sub.ch <- snapshot:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snapshot
		}
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, query Query) (<-chan Snapshot, func(), error) {
	m.mu.Lock()

	if err := m.failSubscribes[collection]; err != nil {
		m.mu.Unlock()
		return nil, nil, err
	}

	sub := &memorySub{
		collection: collection,
		query:      query,
		ch:         make(chan Snapshot, 1),
	}
	m.subs[collection] = append(m.subs[collection], sub)
	sub.ch <- m.snapshotLocked(collection, query)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub.closed {
			return
		}
		sub.closed = true
		close(sub.ch)
		m.subs[collection] = slices.DeleteFunc(m.subs[collection], func(s *memorySub) bool {
			return s == sub
		})
	}

	return sub.ch, cancel, nil
}

func (m *Memory) GetOne(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// WriteAtomic valida tudo antes de aplicar qualquer escrita: ou a lista
// inteira entra, ou nada entra. Listas de um elemento sempre funcionam,
// mesmo com SetAtomicImpossible — qualquer backend escreve um documento
// atomicamente.
func (m *Memory) WriteAtomic(ctx context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.atomicImpossible && len(writes) > 1 {
		return ErrAtomicUnsupported
	}

	type pending struct {
		collection string
		id         string
		doc        Document
	}
	staged := make([]pending, 0, len(writes))

	for _, w := range writes {
		if err := m.failWrites[w.Path]; err != nil {
			return err
		}
		if err := m.takeFailOnceLocked(w.Path); err != nil {
			return err
		}
		collection, id, err := SplitPath(w.Path)
		if err != nil {
			return err
		}
		if err := m.failWrites[collection]; err != nil {
			return err
		}
		if err := m.takeFailOnceLocked(collection); err != nil {
			return err
		}
		current, exists := m.collections[collection][id]
		if exists && !w.Upsert {
			return ErrWriteConflict
		}
		if exists && len(w.Guard) > 0 {
			for field, want := range w.Guard {
				if current[field] != want {
					return ErrWriteConflict
				}
			}
		}
		doc := w.Payload.Clone()
		if w.Merge && exists {
			doc = current.Clone()
			for field, value := range w.Payload {
				doc[field] = value
			}
		}
		doc["_id"] = id
		staged = append(staged, pending{collection: collection, id: id, doc: doc})
	}

	touched := map[string]bool{}
	for _, p := range staged {
		m.ensureCollection(p.collection)[p.id] = p.doc
		touched[p.collection] = true
	}
	for collection := range touched {
		m.notifyLocked(collection)
	}
	return nil
}

func (m *Memory) Append(ctx context.Context, collection string, payload Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrites[collection]; err != nil {
		return "", err
	}

	m.seq++
	id := fmt.Sprintf("gen-%06d", m.seq)
	doc := payload.Clone()
	doc["_id"] = id
	m.ensureCollection(collection)[id] = doc
	m.notifyLocked(collection)
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	m.notifyLocked(collection)
	return nil
}
